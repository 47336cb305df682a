package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskingCore(t *testing.T) {
	tl := NewMaskedTestLogger(hunterMasker)
	ctx := context.Background()

	tl.With(zap.String("user", "bob hunter2")).Info(ctx, "password=hunter2", zap.String("k", "hunter2"))
	tl.Debug(ctx, "debug hunter2")

	tl.AssertLogged(t, zapcore.InfoLevel, "password=*")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug *")
	tl.AssertField(t, "password=*", "user", "bob *")
	tl.AssertField(t, "password=*", "k", "*")
	tl.AssertNotLeaked(t, "hunter2")
}

func TestMaskingCore_RespectsLevel(t *testing.T) {
	inner, observed := observer.New(zapcore.WarnLevel)
	logger := zap.New(NewMaskingCore(inner, hunterMasker, false))

	logger.Info("hunter2")
	logger.Warn("hunter2", zap.String("k", "hunter2"))

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "*", logs[0].Message)
	assert.Equal(t, "hunter2", logs[0].ContextMap()["k"])
}

func TestMaskFields(t *testing.T) {
	fields := []zapcore.Field{
		zap.String("a", "hunter2"),
		zap.Int("b", 1),
		zap.String("c", "clean"),
	}

	masked := maskFields(hunterMasker, fields)

	assert.Equal(t, "*", masked[0].String)
	assert.Equal(t, "clean", masked[2].String)
	assert.Equal(t, "hunter2", fields[0].String, "input must not be modified")

	untouched := []zapcore.Field{zap.String("c", "clean")}
	assert.Equal(t, untouched, maskFields(hunterMasker, untouched))
}

func TestMaskerFunc(t *testing.T) {
	assert.Equal(t, "a*b", hunterMasker.Mask("ahunter2b"))
}

type hunterStringer struct{}

func (hunterStringer) String() string { return "stringer hunter2" }

type credentials struct {
	user, password string
}

func (c credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("user", c.user)
	enc.AddString("password", c.password)
	return nil
}

func TestMaskingEncoder_FieldTypes(t *testing.T) {
	buf := &zaptest.Buffer{}
	logger, err := newLogger(NewDefaultConfig(), hunterMasker, buf)
	require.NoError(t, err)

	logger.With(
		zap.ByteString("with_bytes", []byte("b hunter2")),
		zap.Strings("with_strings", []string{"hunter2"}),
		zap.Object("with_object", credentials{"bob", "hunter2"}),
		zap.Error(errors.New("with hunter2")),
	).Info(context.Background(), "request failed",
		zap.String("k", "hunter2"),
		zap.NamedError("err", errors.New("pw hunter2")),
		zap.Strings("ss", []string{"hunter2", "clean"}),
		zap.ByteString("bs", []byte("hunter2")),
		zap.Stringer("st", hunterStringer{}),
		zap.Any("m", map[string]interface{}{"nested": []interface{}{"hunter2"}}),
		zap.Object("creds", credentials{"bob", "hunter2"}),
		zap.Error(multierr.Combine(errors.New("a hunter2"), errors.New("b"))),
	)

	assert.NotContains(t, buf.String(), "hunter2")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "*", line["k"])
	assert.Equal(t, "pw *", line["err"])
	assert.Equal(t, []interface{}{"*", "clean"}, line["ss"])
	assert.Equal(t, "*", line["bs"])
	assert.Equal(t, "stringer *", line["st"])
	assert.Equal(t, map[string]interface{}{"nested": []interface{}{"*"}}, line["m"])
	assert.Equal(t, map[string]interface{}{"user": "bob", "password": "*"}, line["creds"])
	assert.Equal(t, "b *", line["with_bytes"])
	assert.Equal(t, []interface{}{"*"}, line["with_strings"])
	assert.Equal(t, map[string]interface{}{"user": "bob", "password": "*"}, line["with_object"])
}

func TestMaskFields_ExpandsErrors(t *testing.T) {
	fields := []zapcore.Field{
		zap.Int("n", 1),
		zap.Error(errors.New("hunter2")),
		zap.Int("m", 2),
	}

	masked := maskFields(hunterMasker, fields)

	require.Len(t, masked, 3)
	assert.Equal(t, "n", masked[0].Key)
	assert.Equal(t, zapcore.StringType, masked[1].Type)
	assert.Equal(t, "error", masked[1].Key)
	assert.Equal(t, "*", masked[1].String)
	assert.Equal(t, "m", masked[2].Key)
	assert.Equal(t, zapcore.ErrorType, fields[1].Type, "input must not be modified")

	clean := []zapcore.Field{zap.Error(errors.New("clean")), zap.Stringer("s", hunterStringer{})}
	masked = maskFields(hunterMasker, clean)
	assert.Equal(t, clean[0], masked[0])
	assert.Equal(t, "stringer *", masked[1].String)
}
