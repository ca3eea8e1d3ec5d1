// Package visibility decides which survey questions a respondent sees.
//
// Given the ordered questions of a survey, the answers recorded so far and
// the author's conditions, ResolveVisible returns the visible subset. The
// package is pure and does no I/O, so the server and any preview tooling
// share one implementation and always agree on the result.
package visibility
