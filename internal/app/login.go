package app

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// LoginScreen plays the title animation and waits for a key. The user id
// is shown under the title so learners can find their progress report.
func LoginScreen(s tcell.Screen, user string) {
	text := []struct {
		char  rune
		color tcell.Color
	}{
		{'S', tcell.ColorWhite},
		{'H', tcell.ColorWhite},
		{'E', tcell.ColorWhite},
		{'E', tcell.ColorWhite},
		{'T', tcell.ColorWhite},
		{'L', tcell.ColorYellow},
		{'A', tcell.ColorYellow},
		{'B', tcell.ColorYellow},
	}

	width, height := s.Size()
	centered := func(line string, y int, style tcell.Style) {
		startX := (width - runeLen(line)) / 2
		i := 0
		for _, ch := range line {
			s.SetContent(startX+i, y, ch, nil, style)
			i++
		}
	}

	// letters appear one by one
	for reveal := 1; reveal <= len(text); reveal++ {
		s.Clear()

		startX := (width - len(text)) / 2
		y := height / 2

		for i := 0; i < reveal; i++ {
			style := tcell.StyleDefault.Foreground(text[i].color).Bold(true)
			s.SetContent(startX+i, y, text[i].char, nil, style)
		}

		hint := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		centered("Learn spreadsheet formulas one lesson at a time", y+2, hint)
		if user != "" {
			centered("your id: "+user, y+3, tcell.StyleDefault.Foreground(tcell.ColorWhite))
		}
		centered("Press any key to start", y+5, hint)

		s.Show()
		time.Sleep(120 * time.Millisecond)
	}

	for {
		switch s.PollEvent().(type) {
		case *tcell.EventKey, nil:
			return
		case *tcell.EventResize:
			s.Sync()
		}
	}
}
