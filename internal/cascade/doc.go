// Package cascade decides, for one machine-model card, which views to
// visit and extract until hit records are found.
//
// Strategies run as tiers of decreasing confidence:
//
//	DirectLink   -> follow detail links on the card page
//	DomCandidate -> build detail URLs from machine numbers in DOM attributes
//	Probe        -> click a grid over canvas-like widgets and re-extract
//	FreeText     -> build detail URLs from cd_dai tokens in raw markup
//	CurrentPage  -> extract whatever the current view holds
//
// Which tier runs next is a pure function of the finished tier and whether
// any record has been collected; see the transitions table.
package cascade
