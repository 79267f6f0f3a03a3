package game

import (
	"fmt"
	"math"
)

// NoticeKind classifies a transient player notification
type NoticeKind string

const (
	NoticeCorrect      NoticeKind = "correct"
	NoticeIncorrect    NoticeKind = "incorrect"
	NoticeGameOver     NoticeKind = "game_over"
	NoticeRecordFailed NoticeKind = "record_failed"
)

// Notice is a toast-style message queued for the player
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

func correctNotice(elapsed float64) Notice {
	return Notice{
		Kind:    NoticeCorrect,
		Title:   "Correct! 🎉",
		Message: fmt.Sprintf("You guessed it in %d seconds!", int(math.Round(elapsed))),
	}
}

func incorrectNotice() Notice {
	return Notice{
		Kind:    NoticeIncorrect,
		Title:   "Try again!",
		Message: "That's not the right song. Keep guessing!",
	}
}

func gameOverNotice() Notice {
	return Notice{
		Kind:    NoticeGameOver,
		Title:   "Game Over",
		Message: "You've used all your guesses!",
	}
}

func recordFailedNotice() Notice {
	return Notice{
		Kind:    NoticeRecordFailed,
		Title:   "Error",
		Message: "Failed to record your guess.",
	}
}

// PerformanceMessage is the end screen headline
func PerformanceMessage(attempts int, won bool) string {
	switch {
	case !won:
		return "Better luck next time!"
	case attempts == 1:
		return "Incredible!"
	case attempts == 2:
		return "Amazing!"
	case attempts <= 4:
		return "Not Bad!"
	default:
		return "You got it!"
	}
}
