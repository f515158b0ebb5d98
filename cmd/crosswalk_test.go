//go:build !integration

package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCrosswalk(t *testing.T) {
	cw := map[string][]string{
		"Boise City, ID": {"16001", "16014"},
		"Anchorage, AK":  {"02020"},
	}

	var buf bytes.Buffer
	formatCrosswalk(&buf, cw)

	output := buf.String()
	assert.Contains(t, output, "TITLE")
	assert.Contains(t, output, "Anchorage, AK")
	assert.Contains(t, output, "02020")
	assert.Contains(t, output, "16001,16014")
	assert.Contains(t, output, "2 titles")

	// Titles print in sorted order.
	assert.Less(t, strings.Index(output, "Anchorage"), strings.Index(output, "Boise"))
}

func TestFormatCrosswalk_LongGeoidList(t *testing.T) {
	geoids := make([]string, 30)
	for i := range geoids {
		geoids[i] = fmt.Sprintf("%05d", 17001+i*2)
	}
	cw := map[string][]string{"Chicago-Naperville-Elgin, IL-IN-WI": geoids}

	var buf bytes.Buffer
	formatCrosswalk(&buf, cw)

	output := buf.String()
	assert.Contains(t, output, "30")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, strings.Join(geoids, ","))
}

func TestFormatCrosswalk_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatCrosswalk(&buf, nil)

	output := buf.String()
	assert.Contains(t, output, "TITLE")
	assert.Contains(t, output, "0 titles")
}
