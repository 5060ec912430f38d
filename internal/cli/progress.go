package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/covpare/pare/internal/scheduler"
)

// runProgressBar drains a scheduler status channel into a progress bar until
// the channel closes. Runs on its own goroutine; the caller unsubscribes to
// stop it.
func runProgressBar(statusCh <-chan scheduler.Status, total int, quiet bool) {
	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Running benchmarks"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("benches/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	done := 0
	for st := range statusCh {
		switch st.Phase {
		case scheduler.PhaseRunning:
			if bar != nil && st.Processed > done {
				bar.Add(st.Processed - done)
				done = st.Processed
			}
		case scheduler.PhaseDbError:
			// The scheduler's Run return value carries the error; the bar just
			// stops advancing.
			return
		}
	}
}
