package blog

import (
	"fmt"
	"time"
)

// Post is a short status update owned by exactly one user.
type Post struct {
	ID        int64
	Body      string
	Timestamp time.Time
	UserID    int64
}

func (p Post) String() string { return fmt.Sprintf("<Post %s>", p.Body) }

