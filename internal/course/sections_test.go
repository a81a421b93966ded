package course

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const lessonText = `Welcome text before any heading.

## Introduction
An engaging hook.

### Key Terms
Mitochondria: the powerhouse.

## Summary
Recap of main points.
`

func TestSplitSections(t *testing.T) {
	t.Parallel()

	sections := SplitSections(lessonText)
	require.Len(t, sections, 3)

	require.Equal(t, "Introduction", sections[0].Heading)
	require.Equal(t, "An engaging hook.", sections[0].Content)
	require.Equal(t, "Key Terms", sections[1].Heading)
	require.Equal(t, "Mitochondria: the powerhouse.", sections[1].Content)
	require.Equal(t, "Summary", sections[2].Heading)
	require.Equal(t, "Recap of main points.", sections[2].Content)
}

func TestSplitSectionsDropsPreamble(t *testing.T) {
	t.Parallel()

	sections := SplitSections("preamble only mentions cells\n## Only Section\nbody")
	require.Len(t, sections, 1)
	require.Equal(t, "Only Section", sections[0].Heading)
	require.Equal(t, "body", sections[0].Content)
}

func TestSplitSectionsNoHeadings(t *testing.T) {
	t.Parallel()

	sections := SplitSections("plain paragraph\nanother line")
	require.Empty(t, sections)
}

func TestSplitSectionsDeterministic(t *testing.T) {
	t.Parallel()

	first := SplitSections(lessonText)
	second := SplitSections(lessonText)
	require.Equal(t, first, second)
}
