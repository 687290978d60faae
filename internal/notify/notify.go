package notify

import (
	"fmt"
	"log"
	"strings"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
	"github.com/chamodk/air-quality-fusion/internal/alert"
)

// Sink delivers user notifications. Delivery guarantees are the sink's
// responsibility; the fetch pipeline fires and forgets.
type Sink interface {
	Send(title, body string) error
}

// LogSink writes notifications to the process log. It stands in for a real
// push delivery integration.
type LogSink struct{}

func (LogSink) Send(title, body string) error {
	log.Printf("notification: %s | %s", title, strings.ReplaceAll(body, "\n", " "))
	return nil
}

// Message renders an alert event into a notification title and body,
// including up to three health recommendations.
func Message(e alert.Event) (string, string) {
	var title string
	switch e.Type {
	case airquality.MetricAQI:
		title = "Air Quality Alert"
	case airquality.MetricUV:
		title = "UV Index Alert"
	default:
		title = "Health Alert"
	}

	var metricName string
	if e.Type == airquality.MetricUV {
		metricName = "UV Index"
	} else {
		metricName = "Air Quality Index"
	}

	body := fmt.Sprintf("%s is %d (%s). This exceeds the configured threshold of %d.",
		metricName, e.Value, e.Level, e.Threshold)

	if len(e.Recommendations) > 0 {
		recs := e.Recommendations
		if len(recs) > 3 {
			recs = recs[:3]
		}
		var b strings.Builder
		b.WriteString(body)
		b.WriteString("\n\nHealth recommendations:")
		for _, r := range recs {
			b.WriteString("\n- ")
			b.WriteString(r)
		}
		body = b.String()
	}

	return title, body
}
