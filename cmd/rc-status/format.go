/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// renderTable lays out the queried rows the way the teacher's weave
// package rendered arbitrary structs: a styled table.Table with one column
// per field, retargeted here at the fixed service/state/flags shape
// instead of weave's reflection-driven arbitrary-struct columns.
func renderTable(rows []row) string {
	tbl := table.New().
		Headers("SERVICE", "STATE", "HOTPLUGGED", "WAS-INACTIVE", "CRASHED", "SCHEDULED").
		StyleFunc(func(r, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if r == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})
	for _, r := range rows {
		tbl.Row(
			r.service,
			statusGlyph(r.state),
			checkmark(r.hotplugged),
			checkmark(r.wasInactive),
			checkmark(r.crashed),
			checkmark(r.scheduled),
		)
	}
	return tbl.Render()
}

func checkmark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
