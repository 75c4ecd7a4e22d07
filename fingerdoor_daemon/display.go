package main

const (
	display_columns = 16
	display_rows    = 6
)

// RenderDisplay lays out two lines like the 128x64 OLED did: 16 characters
// per row, at most six rows, and line 2 never on the top (yellow) row.
func RenderDisplay(line1, line2 string) []string {
	rows := make([]string, 0, display_rows)
	for i, content := range []string{line1, line2} {
		if i == 1 && len(rows) == 0 {
			rows = append(rows, "")
		}
		chars := []rune(content)
		for len(chars) > 0 && len(rows) < display_rows {
			n := min(len(chars), display_columns)
			rows = append(rows, string(chars[:n]))
			chars = chars[n:]
		}
	}
	return rows
}
