package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/logmask/internal/logging"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `password=password=\\S+
password.REPLACE=(?<==).+

card=card=\\d{12,16}
card.REPLACE=\\d+(\\d{4})
card.REPLACER=XXXX$1
`

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log-masking.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// executeCommand runs rootCmd with fresh flag values and returns stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	configPath, rulesPath, envFile, logLevel = "", "", "", ""
	rulesStrict, checkJSON = false, false

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	for _, want := range []string{"mask", "rules", "check", "stats"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestMaskCmd(t *testing.T) {
	rules := writeRulesFile(t, testRules)

	t.Run("stdin", func(t *testing.T) {
		out, err := executeCommand(t, "login password=Secr3t! ok\nplain line\npaid card=1234567812345678\n",
			"mask", "--rules", rules)
		require.NoError(t, err)
		assert.Equal(t, "login password=* ok\nplain line\npaid card=XXXX5678\n", out)
	})

	t.Run("file argument", func(t *testing.T) {
		input := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(input, []byte("password=abc\n"), 0600))

		out, err := executeCommand(t, "", "mask", "--rules", rules, input)
		require.NoError(t, err)
		assert.Equal(t, "password=*\n", out)
	})

	t.Run("missing input file", func(t *testing.T) {
		_, err := executeCommand(t, "", "mask", "--rules", rules, filepath.Join(t.TempDir(), "absent.log"))
		assert.Error(t, err)
	})

	t.Run("missing rules file passes input through", func(t *testing.T) {
		out, err := executeCommand(t, "password=abc\n", "mask", "--rules", filepath.Join(t.TempDir(), "absent.properties"))
		require.NoError(t, err)
		assert.Equal(t, "password=abc\n", out)
	})

	t.Run("rules file from env file", func(t *testing.T) {
		dotenv := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(dotenv, []byte("LOGMASK_MASKING_RULES_FILE="+rules+"\n"), 0600))
		t.Cleanup(func() { os.Unsetenv("LOGMASK_MASKING_RULES_FILE") })

		out, err := executeCommand(t, "password=abc\n", "mask", "--env-file", dotenv)
		require.NoError(t, err)
		assert.Equal(t, "password=*\n", out)
	})
}

func TestRulesCmd(t *testing.T) {
	t.Run("lists rules in order", func(t *testing.T) {
		out, err := executeCommand(t, "", "rules", "--rules", writeRulesFile(t, testRules))
		require.NoError(t, err)

		assert.Contains(t, out, "ID")
		assert.Less(t, strings.Index(out, "password"), strings.Index(out, "card"))
		assert.Contains(t, out, "XXXX$1")
		assert.NotContains(t, out, "dropped")
	})

	t.Run("reports dropped rules", func(t *testing.T) {
		path := writeRulesFile(t, testRules+"bad=bad\nbad.REPLACE=([\n")
		out, err := executeCommand(t, "", "rules", "--rules", path)
		require.NoError(t, err)
		assert.Contains(t, out, "dropped 1 rule(s)")
		assert.Contains(t, out, `rule "bad"`)
	})

	t.Run("strict fails on dropped rules", func(t *testing.T) {
		path := writeRulesFile(t, testRules+"orphan=x\n")
		_, err := executeCommand(t, "", "rules", "--rules", path, "--strict")
		assert.Error(t, err)
	})

	t.Run("strict fails on missing file", func(t *testing.T) {
		out, err := executeCommand(t, "", "rules", "--rules", filepath.Join(t.TempDir(), "absent.properties"), "--strict")
		assert.Error(t, err)
		assert.Contains(t, out, "masking is disabled")
	})
}

func TestCheckCmd(t *testing.T) {
	rules := writeRulesFile(t, testRules)

	t.Run("text", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "--rules", rules, "login", "password=Secr3t!", "ok")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Equal(t, "login password=* ok", lines[0])
		assert.Contains(t, out, "password: 1 span(s)")
		assert.Contains(t, out, "1 span(s) masked")
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "--rules", rules, "--json", "card=1234567812345678")
		require.NoError(t, err)

		var result struct {
			Masked     string         `json:"masked"`
			ByRule     map[string]int `json:"by_rule"`
			TotalSpans int            `json:"total_spans"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "card=XXXX5678", result.Masked)
		assert.Equal(t, map[string]int{"card": 1}, result.ByRule)
		assert.NotContains(t, out, "1234567812345678")
	})
}

func TestStatsCmd(t *testing.T) {
	rules := writeRulesFile(t, testRules)

	out, err := executeCommand(t, "password=a password=b\nclean\n", "stats", "--rules", rules)
	require.NoError(t, err)

	assert.Contains(t, out, "logmask_messages_total 2")
	assert.Contains(t, out, `logmask_spans_masked_total{rule="password"} 2`)
	assert.Contains(t, out, "logmask_rules_loaded 2")
}

func TestMaskLines(t *testing.T) {
	var out bytes.Buffer
	n, err := maskLines(strings.NewReader("a\r\nb\nc"), &out, strings.ToUpper)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "A\nB\nC\n", out.String())
}

func TestMaskLines_LongLine(t *testing.T) {
	long := strings.Repeat("a", 2*maxLineSize+200*1024)
	input := "first\n" + long + "\nlast password=x\n"

	var chunks []int
	mask := func(s string) string {
		chunks = append(chunks, len(s))
		return strings.ReplaceAll(strings.ToUpper(s), "PASSWORD=X", "PASSWORD=*")
	}

	var out bytes.Buffer
	n, err := maskLines(strings.NewReader(input), &out, mask)
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, "FIRST\n"+strings.ToUpper(long)+"\nLAST PASSWORD=*\n", out.String())
	require.Len(t, chunks, 5)
	for _, size := range chunks[1:3] {
		assert.GreaterOrEqual(t, size, maxLineSize)
	}
	assert.Equal(t, len(long), chunks[1]+chunks[2]+chunks[3])
}

func TestCommandContext(t *testing.T) {
	tl := logging.NewTestLogger()
	a := &app{logger: tl.Logger}

	t.Run("carries logger and source", func(t *testing.T) {
		t.Setenv("TRACEPARENT", "")
		ctx := a.commandContext(&cobra.Command{}, "stdin")

		assert.Same(t, tl.Logger, logging.FromContext(ctx))
		assert.Equal(t, "stdin", logging.SourceFromContext(ctx))
	})

	t.Run("adopts inbound trace", func(t *testing.T) {
		t.Setenv("TRACEPARENT", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		ctx := a.commandContext(&cobra.Command{}, "app.log")

		logging.FromContext(ctx).Info(ctx, "input masked")
		tl.AssertField(t, "input masked", "trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")
		tl.AssertField(t, "input masked", "span_id", "00f067aa0ba902b7")
		tl.AssertField(t, "input masked", "source", "app.log")
	})

	t.Run("ignores malformed traceparent", func(t *testing.T) {
		t.Setenv("TRACEPARENT", "not-a-trace")
		ctx := a.commandContext(&cobra.Command{}, "stdin")

		for _, f := range logging.ContextFields(ctx) {
			assert.NotEqual(t, "trace_id", f.Key)
		}
	})
}
