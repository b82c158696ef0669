// Package instruments defines the target instrument vocabulary, the mapping
// from classifier label spaces onto canonical instrument keys, and the
// orchestral family groupings used when rolling individual members up into
// section labels.
//
// Keys are stable lowercase identifiers (electric_guitar, drum_kit, ...);
// display names are the user-facing labels stored on analysis results. A key
// that resolves to no label in a classifier's vocabulary simply contributes
// zero probability, so vocabulary drift between model releases degrades
// recall instead of failing analysis.
package instruments
