// Package logging builds the zap logger used by the maskprep binary.
package logging
