// Package analysis provides post-run signal analysis of recorded traces.
//
//   - [FFT] and [PowerSpectrum]: radix-2 transform of a sampled signal
//   - [Dominant]: strongest oscillation frequency of a trace column
//   - [NaturalFrequency]: undamped sprung-mass frequency to compare against
package analysis
