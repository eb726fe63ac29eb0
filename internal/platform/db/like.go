package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string { return likeEscaper.Replace(s) }

// Contains is an ILIKE pattern matching s anywhere.
func Contains(s string) string { return "%" + EscapeLike(s) + "%" }

// Prefix is an ILIKE pattern matching values starting with s.
func Prefix(s string) string { return EscapeLike(s) + "%" }
