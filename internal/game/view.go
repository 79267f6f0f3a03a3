package game

import "fmt"

// Answer identifies the song once the game is over
type Answer struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	TrackID  string `json:"soundcloud_id"`
	EmbedURL string `json:"embed_url,omitempty"`
}

// View is everything the presentation layer renders for a session
type View struct {
	Mode          string         `json:"mode"`
	State         State          `json:"state"`
	Outcome       Outcome        `json:"outcome,omitempty"`
	Error         string         `json:"error,omitempty"`
	Attempts      []Attempt      `json:"attempts"`
	MaxAttempts   int            `json:"max_attempts"`
	Unlocked      int            `json:"unlocked"`
	NextIncrement int            `json:"next_increment"`
	TotalSeconds  int            `json:"total_seconds"`
	Playback      PlaybackState  `json:"playback"`
	Countdown     CountdownState `json:"countdown"`
	Timeline      []Segment      `json:"timeline"`
	Message       string         `json:"message,omitempty"`
	TimeTaken     float64        `json:"time_taken,omitempty"`
	TrackID       string         `json:"track_id,omitempty"`
	Answer        *Answer        `json:"answer,omitempty"`
	Notices       []Notice       `json:"notices,omitempty"`
}

// Terminal reports whether the game in the view is over
func (v View) Terminal() bool {
	return v.State.Terminal()
}

// SkipLabel is the text of the skip button
func (v View) SkipLabel() string {
	return fmt.Sprintf("SKIP (+%ds)", v.NextIncrement)
}

// RemainingAttempts is the number of attempts left, or -1 when unbounded
func (v View) RemainingAttempts() int {
	if v.MaxAttempts <= 0 {
		return -1
	}
	return v.MaxAttempts - len(v.Attempts)
}

// View snapshots the session. The answer is only included once the game
// is over.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	playback := c.gate.Snapshot()
	schedule := c.ledger.Schedule()

	v := View{
		Mode:          c.opts.Mode.Name,
		State:         c.state,
		Attempts:      c.ledger.Attempts(),
		MaxAttempts:   c.ledger.Max(),
		Unlocked:      c.ledger.UnlockedDuration(),
		NextIncrement: c.ledger.NextIncrement(),
		TotalSeconds:  schedule.Total(),
		Playback:      playback,
		Countdown:     c.countdown.State(),
		Timeline:      Timeline(schedule, c.ledger.UnlockedDuration(), playback.Position),
	}
	if c.err != nil {
		v.Error = c.err.Error()
	}
	if c.song != nil {
		v.TrackID = c.song.TrackID
	}

	switch c.state {
	case StateWon:
		v.Outcome = OutcomeWon
	case StateLost:
		v.Outcome = OutcomeLost
	}

	if c.state.Terminal() && c.song != nil {
		v.Message = PerformanceMessage(c.ledger.Len(), c.state == StateWon)
		v.TimeTaken = c.timeTaken
		v.Answer = &Answer{
			Title:    c.song.Title,
			Artist:   c.song.Artist,
			TrackID:  c.song.TrackID,
			EmbedURL: c.song.EmbedURL,
		}
	}
	return v
}
