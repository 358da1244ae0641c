// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/leafscan/pkg/balance"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each time the progress bar is updated, and it should return a name and the current value when it is called.
type ExtraMetricFn func() (name, value string)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// maxUpdateFrequency is the time between updates to the commandline display of stats.
const maxUpdateFrequency = time.Millisecond * 200

var (
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

// progressBar holds a progressbar being displayed.
type progressBar struct {
	bar        *progressbar.ProgressBar
	toGenerate dataset.Counts
	generated  dataset.Counts
	pending    int
	start      time.Time
	lastUpdate time.Time

	// lipgloss-based rich and asynchronous display for the command-line.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup

	extraMetricFns []ExtraMetricFn
}

type progressBarUpdate struct {
	amount    int
	generated dataset.Counts
	elapsed   time.Duration
}

// AttachProgressBar sets the hooks of the Balancer so that while it runs it displays a progress bar, and
// a table with the images generated so far per category.
//
// Optionally, one can provide extraMetrics: functions that are called at every update of
// the progress bar and should return a name (title) and a value to be included in the
// updated print-out.
func AttachProgressBar(b *balance.Balancer, extraMetrics ...ExtraMetricFn) {
	pBar := &progressBar{extraMetricFns: extraMetrics}
	b.OnStart = pBar.onStart
	b.OnImage = pBar.onImage
	b.OnEnd = pBar.onEnd
}

func (pBar *progressBar) onStart(toGenerate dataset.Counts) {
	pBar.toGenerate = toGenerate
	pBar.generated = dataset.Counts{}
	pBar.pending = 0
	pBar.start = time.Now()
	pBar.isFirstOutput = true
	pBar.bar = progressbar.NewOptions(toGenerate.Total(),
		progressbar.OptionSetDescription("      [bold]"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(os.Stdout),
	)
	pBar.termenv = termenv.NewOutput(os.Stdout)
	pBar.statsStyle = lipgloss.NewStyle().PaddingLeft(8)
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return cellStyle
		})
	pBar.updates = make(chan progressBarUpdate, 100) // Large buffer so things are not blocked.
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawUpdates()
}

// drawUpdates asynchronously, so a slow terminal doesn't slow down the generation of images.
func (pBar *progressBar) drawUpdates() {
	defer pBar.asyncUpdatesDone.Done()
	for update := range pBar.updates {
		// Exhaust the updates in the buffer:
		amount := update.amount
	exhaust:
		for {
			select {
			case newUpdate, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newUpdate.amount
				update = newUpdate
			default:
				break exhaust
			}
		}

		// Create the table to be printed.
		pBar.statsTable.Data(lgtable.NewStringData())
		numRows := 0
		for _, label := range dataset.AllLabels() {
			if pBar.toGenerate[label] == 0 {
				continue
			}
			pBar.statsTable.Row(label.String(), fmt.Sprintf("%s of %s",
				humanize.Comma(int64(update.generated[label])), humanize.Comma(int64(pBar.toGenerate[label]))))
			numRows++
		}
		pBar.statsTable.Row("Elapsed", FormatDuration(update.elapsed))
		numRows++
		for _, extraMetric := range pBar.extraMetricFns {
			name, value := extraMetric()
			pBar.statsTable.Row(name, value)
			numRows++
		}

		// For command-line, we clear the previous lines that will be overwritten: the table rows, its
		// top and bottom borders and the progress bar line.
		pBar.termenv.HideCursor()
		if !pBar.isFirstOutput {
			pBar.termenv.CursorPrevLine(numRows + 3)
		}
		pBar.isFirstOutput = false

		// Print update.
		fmt.Println(pBar.statsStyle.Render(pBar.statsTable.String()))
		_ = pBar.bar.Add(amount) // Prints progress bar line.
		fmt.Println()
		pBar.termenv.ShowCursor()
		time.Sleep(maxUpdateFrequency)
	}
}

func (pBar *progressBar) onImage(r dataset.Record) {
	pBar.generated[r.Label]++
	pBar.pending++
	if time.Since(pBar.lastUpdate) < maxUpdateFrequency && pBar.generated.Total() < pBar.toGenerate.Total() {
		return
	}
	pBar.enqueue()
}

func (pBar *progressBar) enqueue() {
	if pBar.pending == 0 {
		return
	}
	pBar.updates <- progressBarUpdate{
		amount:    pBar.pending,
		generated: pBar.generated,
		elapsed:   time.Since(pBar.start),
	}
	pBar.pending = 0
	pBar.lastUpdate = time.Now()
}

func (pBar *progressBar) onEnd() {
	if pBar.updates == nil {
		return
	}
	pBar.enqueue()
	close(pBar.updates)
	pBar.asyncUpdatesDone.Wait()
	pBar.updates = nil
	if pBar.termenv != nil {
		pBar.termenv.ShowCursor()
	}
	fmt.Println()
}
