// Package convert translates between the canonical annotation model and the
// external annotation formats the tool reads and writes: COCO JSON, Label
// Studio task JSON, Pascal VOC XML, and LabelMe JSON.
//
// Each format is modelled as a pair of pure functions (parse into the
// canonical model, render out of it) registered against a format tag; a
// format may support only one direction. The tiling core never references a
// converter, and the converters never reach into the tiling core: both sides
// meet only at the annotation package.
//
// Directory-level helpers (VOCDirToLabelStudio, LabelMeDirToLabelStudio)
// batch-convert annotation directories into a single Label Studio task file
// for import.
package convert
