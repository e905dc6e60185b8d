// Package detector determines which release to inject.
//
// Every source of a version identifier is a Provider: the automatic probe of
// locally installed VS Code binaries, an identifier fixed on the command line,
// or an operator prompt. Chain tries them in order.
//
// The probe expects the commit identifier on a fixed line of the
// `--version` output (line 1 for current VS Code builds). A format change
// upstream makes the probe fail and the chain fall through to the next provider.
package detector
