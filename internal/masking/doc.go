// Package masking redacts secrets from log messages using configured regex rules.
//
// A rule pairs an outer pattern, which finds the span that may hold a secret,
// with a sub-pattern applied only inside that span and a replacement string.
// Rules are read from a properties file:
//
//	password=password=\\S+
//	password.REPLACE=(?<==).+
//	password.REPLACER=*
//
// The Engine applies rules in file order. Each rule rewrites the output of
// the previous one. Rules are immutable after loading, so an Engine is safe
// for concurrent use without locking.
//
// Loading never fails hard: a missing file disables masking, and a rule with
// an invalid pattern is dropped while the others still load.
package masking
