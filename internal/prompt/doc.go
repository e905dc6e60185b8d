// Package prompt asks the operator for values that could not be determined automatically.
package prompt
