package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/analysis"
	"hanziblur/internal/textutil"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		noCache    bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Detect burned-in Chinese subtitles and list their tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, closeCache, err := ctx.newAnalyzer(cmd, !noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			runCtx, cancel := contextWithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := analyzer.Analyze(runCtx, args[0])
			if err != nil {
				if jsonOutput && res != nil {
					_ = writeJSON(cmd, res)
				}
				return wrapRunError(err, timeout)
			}
			if jsonOutput {
				return writeJSON(cmd, res)
			}
			printAnalysis(cmd, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and do not update the track cache")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort analysis after this long (0 = no limit)")
	return cmd
}

func printAnalysis(cmd *cobra.Command, res *analysis.Result) {
	out := cmd.OutOrStdout()
	src := res.Video
	fmt.Fprintf(out, "Video:    %s (%dx%d, %.3f fps, %.1fs)\n", src.Path, src.Width, src.Height, src.FPS, src.Duration())
	fmt.Fprintf(out, "Engine:   %s\n", res.Engine)
	fmt.Fprintf(out, "Cached:   %s\n", yesNo(res.Cached))
	if !res.Cached {
		fmt.Fprintf(out, "Regions:  %d (refined frames %d, fallback %s)\n", res.Regions, res.Refined, yesNo(res.FallbackUsed))
		fmt.Fprintf(out, "Gate:     %d sampled, %d sent to OCR\n", res.Gate.Total, res.Gate.Processed)
		fmt.Fprintf(out, "Elapsed:  %s\n", res.Elapsed.Round(time.Millisecond))
	}
	if len(res.Tracks) == 0 {
		fmt.Fprintln(out, "No subtitle tracks detected")
		return
	}
	columns, rows := trackTable(res.Tracks)
	fmt.Fprintln(out, renderTable(columns, rows, trackCaption(res.Tracks), shouldColorize(out)))
}

var trackColumns = []column{
	{header: "#", right: true},
	{header: "Start", right: true},
	{header: "End", right: true},
	{header: "Box (x,y,w,h %)"},
	{header: "Hits", right: true},
	{header: "Conf", right: true},
	{header: "Source"},
	{header: "Text"},
}

func trackTable(tracks []aggregate.Track) ([]column, [][]string) {
	rows := make([][]string, 0, len(tracks))
	for i, t := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.2f", t.StartTime),
			fmt.Sprintf("%.2f", t.EndTime),
			fmt.Sprintf("%.1f,%.1f,%.1f,%.1f", t.X, t.Y, t.Width, t.Height),
			strconv.Itoa(t.Frequency),
			fmt.Sprintf("%.2f", t.Confidence),
			t.Source,
			strings.TrimSpace(textutil.Preview(t.SampleText, 24)),
		})
	}
	return trackColumns, rows
}

// trackCaption summarizes how much screen time the tracks cover.
func trackCaption(tracks []aggregate.Track) string {
	var covered float64
	for _, t := range tracks {
		covered += t.Duration()
	}
	noun := "tracks"
	if len(tracks) == 1 {
		noun = "track"
	}
	return fmt.Sprintf("%d %s, %.1fs blurred in total", len(tracks), noun, covered)
}
