// Package layout positions dialogue rows for display.
//
// # Overview
//
// Two engines share one contract: given rows (and a spacing [Config]) they
// return a map assigning exactly one [Point] to every input row, and they
// terminate on arbitrary graphs, cycles included. Neither engine mutates
// its input; derived parent links are recomputed on an internal copy.
//
// [Layered] produces a Sugiyama-style banded layout: breadth-first layer
// assignment from the conversation roots, five barycenter sweeps to reduce
// edge crossings, then per-component coordinates along a running horizontal
// offset. It reads well for long branching conversations.
//
// [Forest] treats every root NPC line as the head of a tree, lays each tree
// out independently with the same layering and ordering steps, then packs
// the trees into a grid of roughly square shape. It reads well for files
// that hold many small disconnected exchanges, which is what most game
// dialogue files look like.
//
// # Spacing
//
// Node boxes are 300x90 by default with 60/110 pixel gaps. [AutoGaps]
// tightens the gaps as the row count grows so large files stay navigable
// on screen. [CountCrossings] measures how well an ordering turned out.
package layout
