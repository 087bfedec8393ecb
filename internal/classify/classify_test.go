package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testTable(fallback Fallback) *Table {
	return &Table{
		OnUnmatched: fallback,
		Categories: []Category{
			{Tag: "violent", Name: "Violent Crime", Color: "#dc2626",
				Keywords: []string{"HOMICIDE", "ROBBERY", "ASSAULT", "BATTERY"}},
			{Tag: "property", Name: "Property Crime", Color: "#f59e0b",
				Keywords: []string{"THEFT", "BURGLARY", "CRIMINAL DAMAGE"}},
		},
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	tbl := testTable(Drop)
	tag, ok := tbl.Classify("AGGRAVATED ASSAULT")
	assert.True(t, ok)
	assert.Equal(t, "violent", tag)
}

func TestClassify_CaseInsensitive(t *testing.T) {
	tbl := testTable(Drop)
	tag, ok := tbl.Classify("motor vehicle theft")
	assert.True(t, ok)
	assert.Equal(t, "property", tag)
}

func TestClassify_PriorityOrder(t *testing.T) {
	// "ASSAULT" appears before any property keyword; a label containing
	// keywords from both categories resolves to the earlier one.
	tbl := testTable(Drop)
	tag, ok := tbl.Classify("ASSAULT DURING BURGLARY")
	assert.True(t, ok)
	assert.Equal(t, "violent", tag)
}

func TestClassify_DropPolicy(t *testing.T) {
	tbl := testTable(Drop)
	tag, ok := tbl.Classify("GAMBLING")
	assert.False(t, ok)
	assert.Empty(t, tag)
}

func TestClassify_OtherPolicy(t *testing.T) {
	tbl := testTable(Other)
	tag, ok := tbl.Classify("GAMBLING")
	assert.True(t, ok)
	assert.Equal(t, OtherTag, tag)
}

func TestClassify_SubstringContainment(t *testing.T) {
	tbl := testTable(Drop)
	tag, ok := tbl.Classify("Pothole in Street Complaint - CRIMINAL DAMAGE noted")
	assert.True(t, ok)
	assert.Equal(t, "property", tag)
}

func TestLookup(t *testing.T) {
	tbl := testTable(Drop)
	c, ok := tbl.Lookup("property")
	assert.True(t, ok)
	assert.Equal(t, "Property Crime", c.Name)

	_, ok = tbl.Lookup("missing")
	assert.False(t, ok)
}
