package compress

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/logging"
)

// Options tunes the compression policy. The defaults mirror the standard
// deliberation setup; change them only in lockstep with prompt budgets.
type Options struct {
	// TokenThreshold is the estimated-token total above which compression
	// triggers.
	TokenThreshold int
	// KeepEarliestSystem is how many of the oldest system-originated
	// messages survive verbatim.
	KeepEarliestSystem int
	// KeepRecent is how many of the most recent messages (any type)
	// survive verbatim.
	KeepRecent int
	// MaxKeyPoints caps the list-like lines carried forward verbatim.
	MaxKeyPoints int
	// ExcerptLength is how many characters of each collapsed message feed
	// its role's joined excerpt.
	ExcerptLength int
	// Logger receives the observed compression ratio. Defaults to NoOp.
	Logger logging.Logger
}

// Compressor shrinks a message history once it crosses the token threshold.
// Stateless and safe for concurrent use.
type Compressor struct {
	opts Options
}

// New creates a compressor with the standard policy.
func New(optFns ...func(o *Options)) *Compressor {
	opts := Options{
		TokenThreshold:     8000,
		KeepEarliestSystem: 3,
		KeepRecent:         5,
		MaxKeyPoints:       5,
		ExcerptLength:      100,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Compressor{opts: opts}
}

// NeedsCompression reports whether the estimated token total of the history
// exceeds the threshold.
func (c *Compressor) NeedsCompression(msgs []core.Message) bool {
	return core.EstimateMessageTokens(msgs) > c.opts.TokenThreshold
}

// CompressIfNeeded returns the input unchanged when it is under the
// threshold, otherwise the compressed history.
func (c *Compressor) CompressIfNeeded(msgs []core.Message) []core.Message {
	if !c.NeedsCompression(msgs) {
		return msgs
	}
	return c.Compress(msgs)
}

// Compress collapses the middle of the history into one synthetic message.
// Histories too short to have a meaningful middle (fewer than KeepRecent+2
// messages) are returned unchanged; that short-circuit is authoritative and
// no overlap repair is attempted below it.
func (c *Compressor) Compress(msgs []core.Message) []core.Message {
	if len(msgs) < c.opts.KeepRecent+2 {
		return msgs
	}

	tokensBefore := core.EstimateMessageTokens(msgs)
	tailStart := len(msgs) - c.opts.KeepRecent

	// earliest system messages below the recent window survive verbatim
	headIdx := make(map[int]bool, c.opts.KeepEarliestSystem)
	for i := 0; i < tailStart && len(headIdx) < c.opts.KeepEarliestSystem; i++ {
		if msgs[i].Type == core.MessageSystem {
			headIdx[i] = true
		}
	}

	var collapsed []core.Message
	for i := 0; i < tailStart; i++ {
		if !headIdx[i] {
			collapsed = append(collapsed, msgs[i])
		}
	}
	if len(collapsed) == 0 {
		return msgs
	}

	synthetic := c.buildCompressedMessage(collapsed)

	out := make([]core.Message, 0, len(headIdx)+1+c.opts.KeepRecent)
	for i := 0; i < tailStart; i++ {
		if headIdx[i] {
			out = append(out, msgs[i])
		}
	}
	out = append(out, synthetic)
	out = append(out, msgs[tailStart:]...)

	tokensAfter := core.EstimateMessageTokens(out)
	ratio := 0.0
	if tokensAfter > 0 {
		ratio = float64(tokensBefore) / float64(tokensAfter)
	}
	c.opts.Logger.Info("history compressed",
		"original_count", len(collapsed),
		"tokens_before", tokensBefore,
		"tokens_after", tokensAfter,
		"compression_ratio", ratio,
	)

	return out
}

// buildCompressedMessage produces the single stand-in for the collapsed run:
// one short joined excerpt per role plus up to MaxKeyPoints list-like lines
// carried forward verbatim.
func (c *Compressor) buildCompressedMessage(collapsed []core.Message) core.Message {
	from := collapsed[0].Timestamp
	to := collapsed[len(collapsed)-1].Timestamp

	// group by role preserving first-appearance order
	var roleOrder []string
	excerpts := map[string][]string{}
	for _, m := range collapsed {
		if _, seen := excerpts[m.Role]; !seen {
			roleOrder = append(roleOrder, m.Role)
		}
		excerpts[m.Role] = append(excerpts[m.Role], excerpt(m.Content, c.opts.ExcerptLength))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Compressed %d earlier messages, %s to %s]\n",
		len(collapsed), from.Format(time.RFC3339), to.Format(time.RFC3339))
	for _, role := range roleOrder {
		fmt.Fprintf(&b, "%s: %s\n", role, strings.Join(excerpts[role], " | "))
	}

	if points := keyPoints(collapsed, c.opts.MaxKeyPoints); len(points) > 0 {
		b.WriteString("Key points:\n")
		for _, p := range points {
			b.WriteString(p)
			b.WriteString("\n")
		}
	}

	msg := core.NewMessage(core.RoleSystem, core.MessageCompressed, strings.TrimRight(b.String(), "\n"))
	msg = msg.WithMetadata(core.MetaOriginalCount, len(collapsed))
	msg = msg.WithMetadata(core.MetaFromTime, from.Format(time.RFC3339))
	msg = msg.WithMetadata(core.MetaToTime, to.Format(time.RFC3339))
	return msg
}

// keyPoints scans the collapsed messages for list-like lines (bullets or
// numbered items) and returns up to max of them verbatim.
func keyPoints(msgs []core.Message, max int) []string {
	var points []string
	for _, m := range msgs {
		for _, line := range strings.Split(m.Content, "\n") {
			if len(points) >= max {
				return points
			}
			if isListLine(line) {
				points = append(points, line)
			}
		}
	}
	return points
}

func isListLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") || strings.HasPrefix(t, "• ") {
		return true
	}
	// numeric list markers: "1." "2)" etc.
	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	return i > 0 && i < len(t) && (t[i] == '.' || t[i] == ')')
}

func excerpt(text string, limit int) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
