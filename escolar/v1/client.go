package v1

import (
	"context"
	"strconv"
	"time"
)

type EscolarClient struct {
	Transport   *Transport
	Students    *StudentEndpoint
	Groups      *GroupEndpoint
	Courses     *CourseEndpoint
	Periods     *PeriodEndpoint
	Users       *UserEndpoint
	Attendances *AttendanceEndpoint
	Grades      *GradeEndpoint
}

// NewEscolarClient initializes the API client
func NewEscolarClient(baseURL string, token string, timeout time.Duration) *EscolarClient {
	t := NewTransport(baseURL, token, timeout)
	return &EscolarClient{
		Transport:   t,
		Students:    &StudentEndpoint{transport: t},
		Groups:      &GroupEndpoint{transport: t},
		Courses:     &CourseEndpoint{transport: t},
		Periods:     &PeriodEndpoint{transport: t},
		Users:       &UserEndpoint{transport: t},
		Attendances: &AttendanceEndpoint{transport: t},
		Grades:      &GradeEndpoint{transport: t},
	}
}

// Ping issues the cheapest authenticated request the API serves.
func (c *EscolarClient) Ping(ctx context.Context) error {
	return c.Transport.Head(ctx, "/students", map[string]string{"limit": "1"})
}

func decode[T any](resp *Response, err error) (T, error) {
	var result T
	if err != nil {
		return result, err
	}
	if err := resp.Decode(&result); err != nil {
		return result, err
	}
	return result, nil
}

func page(limit, offset int) map[string]string {
	q := map[string]string{}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
	if offset > 0 {
		q["offset"] = strconv.Itoa(offset)
	}
	return q
}
