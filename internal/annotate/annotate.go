// Package annotate overlays character-range annotations onto section
// content. All offsets are UTF-16 code units, the unit browser selection
// APIs report, so astral characters count as two units. Section content is
// always valid UTF-8, which makes the UTF-16 round trip lossless.
package annotate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Annotation is one tagged character range inside a section. StartOffset
// and EndOffset are half-open UTF-16 code-unit offsets into the section's
// content. Tag is the replacement text used by redaction; when empty, the
// class name in square brackets is used instead. OriginalText records the
// annotated span at authoring time and drives offset verification.
type Annotation struct {
	SectionIndex int
	StartOffset  int
	EndOffset    int
	Tag          string
	ClassName    string
	OriginalText string
}

// Segment is one run of section content, either plain (nil Annotation) or
// covered by exactly one annotation.
type Segment struct {
	Text       string
	Annotation *Annotation
}

// Units converts a string to the UTF-16 code units annotation offsets are
// recorded against.
func Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// FromUnits converts UTF-16 code units back to a string.
func FromUnits(u []uint16) string {
	return string(utf16.Decode(u))
}

// GroupBySection buckets annotations by their section index.
func GroupBySection(anns []Annotation) map[int][]Annotation {
	bySection := make(map[int][]Annotation)
	for _, ann := range anns {
		bySection[ann.SectionIndex] = append(bySection[ann.SectionIndex], ann)
	}
	return bySection
}

// Overlay partitions content into ordered segments whose concatenated Text
// fields reconstruct content exactly. Annotations are applied in ascending
// start order. Overlapping input is resolved deterministically rather than
// rejected: a start before the current cursor is clipped forward to the
// cursor, an end past the content is clamped, and an annotation left with
// nothing after clipping is skipped. The walk never moves backwards and
// never emits the same unit twice.
func Overlay(content string, anns []Annotation) []Segment {
	units := Units(content)
	n := len(units)

	sorted := make([]Annotation, len(anns))
	copy(sorted, anns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset < sorted[j].StartOffset
	})

	var segs []Segment
	cursor := 0
	for i := range sorted {
		start, end := sorted[i].StartOffset, sorted[i].EndOffset
		if start < cursor {
			start = cursor
		}
		if end > n {
			end = n
		}
		if end <= start {
			continue
		}
		if start > cursor {
			segs = append(segs, Segment{Text: FromUnits(units[cursor:start])})
		}
		ann := sorted[i]
		segs = append(segs, Segment{Text: FromUnits(units[start:end]), Annotation: &ann})
		cursor = end
	}
	if cursor < n {
		segs = append(segs, Segment{Text: FromUnits(units[cursor:])})
	}
	return segs
}

// SplitSegmentLines splits overlay segments on newlines for line-oriented
// rendering. A segment spanning multiple lines contributes one fragment
// per line, each carrying the same annotation, so highlight styling
// survives the line break. Empty fragments produced by the split are
// dropped; the line structure itself is preserved.
func SplitSegmentLines(segs []Segment) [][]Segment {
	lines := make([][]Segment, 1)
	for _, seg := range segs {
		parts := strings.Split(seg.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part == "" {
				continue
			}
			cur := len(lines) - 1
			lines[cur] = append(lines[cur], Segment{Text: part, Annotation: seg.Annotation})
		}
	}
	return lines
}

// Verify reports whether the annotation's stored range still selects its
// OriginalText within content.
func Verify(content string, ann Annotation) bool {
	units := Units(content)
	if ann.StartOffset < 0 || ann.EndOffset > len(units) || ann.StartOffset >= ann.EndOffset {
		return false
	}
	return FromUnits(units[ann.StartOffset:ann.EndOffset]) == ann.OriginalText
}

// FixCodePointOffsets converts offsets recorded in Unicode code-point
// space into UTF-16 code units. Every astral code point before an offset
// shifts it by one extra unit. The converted range is accepted only when
// it selects the annotation's OriginalText; otherwise ok is false and the
// stored offsets should be left alone.
func FixCodePointOffsets(content string, ann Annotation) (start, end int, ok bool) {
	runes := []rune(content)
	if ann.StartOffset < 0 || ann.EndOffset > len(runes) || ann.StartOffset >= ann.EndOffset {
		return 0, 0, false
	}

	start = unitLen(runes[:ann.StartOffset])
	end = start + unitLen(runes[ann.StartOffset:ann.EndOffset])

	fixed := ann
	fixed.StartOffset, fixed.EndOffset = start, end
	if !Verify(content, fixed) {
		return 0, 0, false
	}
	return start, end, true
}

// TrimWhitespace shrinks an annotation's range over leading and trailing
// whitespace. A range that is entirely whitespace is left unchanged rather
// than collapsed to nothing.
func TrimWhitespace(content string, ann Annotation) (start, end int, trimmed bool) {
	units := Units(content)
	start, end = ann.StartOffset, ann.EndOffset
	if start < 0 {
		start = 0
	}
	if end > len(units) {
		end = len(units)
	}
	if end <= start {
		return ann.StartOffset, ann.EndOffset, false
	}

	for start < end && isSpaceUnit(units[start]) {
		start++
	}
	for end > start && isSpaceUnit(units[end-1]) {
		end--
	}
	if start == end {
		return ann.StartOffset, ann.EndOffset, false
	}
	return start, end, start != ann.StartOffset || end != ann.EndOffset
}

func unitLen(runes []rune) int {
	n := 0
	for _, r := range runes {
		if utf16.RuneLen(r) == 2 {
			n += 2
			continue
		}
		n++
	}
	return n
}

func isSpaceUnit(u uint16) bool {
	return unicode.IsSpace(rune(u))
}
