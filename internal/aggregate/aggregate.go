package aggregate

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"hanziblur/internal/classify"
	"hanziblur/internal/geom"
	"hanziblur/internal/logging"
)

// Aggregator clusters Regions into Tracks. It is not safe for concurrent use;
// analysis runs it once after all segment workers have joined.
type Aggregator struct {
	opts   Options
	logger *slog.Logger
}

// New constructs an Aggregator with normalized options.
func New(opts Options, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		opts:   opts.Normalize(),
		logger: logging.NewComponentLogger(logger, "aggregate"),
	}
}

// Options returns the effective options.
func (a *Aggregator) Options() Options { return a.opts }

type cluster struct {
	representative geom.Box
	envelope       geom.Box
	members        []classify.Region
}

// Aggregate returns trusted tracks ordered by start time. Empty input yields
// an empty, non-nil slice.
func (a *Aggregator) Aggregate(regions []classify.Region) []Track {
	if len(regions) == 0 {
		return []Track{}
	}

	buckets := bucketize(regions)
	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	var candidates []Track
	clusterCount := 0
	for _, bucket := range keys {
		for _, c := range a.clusterBucket(buckets[bucket]) {
			candidates = append(candidates, newTrack(bucket, c.members, c.envelope, a.opts))
			clusterCount++
		}
	}

	merged := a.mergeAcrossBuckets(candidates)

	trusted := make([]Track, 0, len(merged))
	for _, tr := range merged {
		if !tr.Trusted() {
			a.logger.Debug("track rejected by trust filter",
				logging.Float64("area_ratio", tr.AreaRatio()),
				logging.Float64("height", tr.Height),
				logging.String("text", tr.SampleText),
			)
			continue
		}
		if a.opts.ScoringFilter {
			if ok, score := AcceptSubtitle(tr); !ok {
				a.logger.Debug("track rejected by subtitle scoring",
					logging.Float64("score", score),
					logging.Int("time_groups", tr.TimeGroupCount),
					logging.String("text", tr.SampleText),
				)
				continue
			}
		}
		trusted = append(trusted, tr)
	}

	if len(trusted) == 0 {
		relaxed := a.Relaxed(regions)
		a.logger.Info("no trusted tracks; relaxed clustering applied",
			logging.Int("regions", len(regions)),
			logging.Int("tracks", len(relaxed)),
		)
		return relaxed
	}

	SortTracks(trusted)
	for i := range trusted {
		trusted[i].ClusterID = fmt.Sprintf("cluster_%d", i+1)
	}
	a.logger.Info("regions aggregated",
		logging.Int("regions", len(regions)),
		logging.Int("buckets", len(keys)),
		logging.Int("clusters", clusterCount),
		logging.Int("tracks", len(trusted)),
	)
	return trusted
}

// Bucket maps a timestamp to its half-second group.
func Bucket(t float64) float64 {
	return math.Round(t*2) / 2
}

func bucketize(regions []classify.Region) map[float64][]classify.Region {
	out := make(map[float64][]classify.Region)
	for _, r := range regions {
		b := Bucket(r.Time)
		out[b] = append(out[b], r)
	}
	return out
}

// clusterBucket groups regions greedily. Each region is compared against the
// first member of every existing cluster; the envelope grows to the union of
// members while the representative stays fixed.
func (a *Aggregator) clusterBucket(regions []classify.Region) []cluster {
	var clusters []cluster
	reps := make([]geom.Box, 0, len(regions))
	for _, r := range regions {
		scores := a.opts.Math.IoUAgainst(r.Box, reps)
		joined := false
		for i := range clusters {
			if scores[i] > a.opts.ClusterIoU || a.adjacent(r.Box, clusters[i].representative) {
				clusters[i].members = append(clusters[i].members, r)
				clusters[i].envelope = clusters[i].envelope.Union(r.Box)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, cluster{
				representative: r.Box,
				envelope:       r.Box,
				members:        []classify.Region{r},
			})
			reps = append(reps, r.Box)
		}
	}
	return clusters
}

func (a *Aggregator) adjacent(x, y geom.Box) bool {
	return geom.SameRow(x, y, a.opts.SameRowMultiplier) && geom.HorizontalGap(x, y) <= a.opts.HorizontalGap
}

// mergeAcrossBuckets joins tracks that overlap in space (or sit side by side
// on a row) and touch in time.
func (a *Aggregator) mergeAcrossBuckets(tracks []Track) []Track {
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].Y != tracks[j].Y {
			return tracks[i].Y < tracks[j].Y
		}
		return tracks[i].StartTime < tracks[j].StartTime
	})
	var accepted []Track
	for _, tr := range tracks {
		merged := false
		for i := range accepted {
			ex := &accepted[i]
			spatial := geom.IoU(tr.Box, ex.Box) > a.opts.MergeIoU || a.adjacent(tr.Box, ex.Box)
			temporal := tr.StartTime <= ex.EndTime+a.opts.MergeTimeGap && tr.EndTime >= ex.StartTime-a.opts.MergeTimeGap
			if spatial && temporal {
				ex.absorb(tr, a.opts.MergeMode)
				merged = true
				break
			}
		}
		if !merged {
			accepted = append(accepted, tr)
		}
	}
	return accepted
}

// Relaxed re-clusters every region by overlap alone, bypassing the trust and
// scoring filters. Envelopes are padded and floored at a minimum size.
func (a *Aggregator) Relaxed(regions []classify.Region) []Track {
	if len(regions) == 0 {
		return []Track{}
	}
	type group struct {
		rep     geom.Box
		box     geom.Box
		members []classify.Region
	}
	var groups []group
	for _, r := range regions {
		joined := false
		for i := range groups {
			if geom.IoU(r.Box, groups[i].rep) > a.opts.ClusterIoU {
				groups[i].members = append(groups[i].members, r)
				groups[i].box = groups[i].box.Union(r.Box)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, group{rep: r.Box, box: r.Box, members: []classify.Region{r}})
		}
	}

	out := make([]Track, 0, len(groups))
	for _, g := range groups {
		env := a.relaxedEnvelope(g.box)
		tr := Track{
			Box:       env,
			Frequency: len(g.members),
			Source:    classify.SourceFallbackRegion,
			FirstSeen: math.Inf(1),
			LastSeen:  math.Inf(-1),
			groups:    make(map[float64]struct{}),
		}
		for _, m := range g.members {
			tr.absorbMember(m)
			tr.groups[Bucket(m.Time)] = struct{}{}
		}
		tr.TimeGroupCount = len(tr.groups)
		tr.StartTime = math.Max(0, tr.FirstSeen-a.opts.BufferBefore)
		tr.EndTime = tr.LastSeen + a.opts.BufferAfter
		out = append(out, tr)
	}
	SortTracks(out)
	for i := range out {
		out[i].ClusterID = fmt.Sprintf("relaxed_%d", i+1)
	}
	return out
}

func (a *Aggregator) relaxedEnvelope(b geom.Box) geom.Box {
	pad := a.opts.RelaxedPadding
	left := math.Max(0, b.X-pad)
	top := math.Max(0, b.Y-pad)
	right := math.Min(100, b.Right()+pad)
	bottom := math.Min(100, b.Bottom()+pad)
	w := math.Max(a.opts.RelaxedMinSize, right-left)
	h := math.Max(a.opts.RelaxedMinSize, bottom-top)
	if left+w > 100 {
		left = math.Max(0, 100-w)
	}
	if top+h > 100 {
		top = math.Max(0, 100-h)
	}
	return geom.Box{X: left, Y: top, Width: w, Height: h}
}
