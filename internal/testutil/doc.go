// Package testutil provides fixtures shared by package tests: temp-dir
// stores, programs with silent logging, signed instruction builders and a
// deterministic trace id source.
package testutil
