package sink_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/okian/smsrelay/internal/adapters/sink"
	"github.com/okian/smsrelay/internal/config"
	"github.com/okian/smsrelay/internal/domain/model"
	logging "github.com/okian/smsrelay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var occurred = time.Date(2026, 3, 9, 14, 5, 6, 789_000_000, time.UTC)

func testEvent() model.Event {
	return model.NewEvent("+15550001", "Your code is 4821", occurred, model.SourcePush)
}

type captured struct {
	mu      sync.Mutex
	headers http.Header
	body    []byte
	path    string
}

func gunzip(b []byte) []byte {
	r, err := gzip.NewReader(bytes.NewReader(b))
	So(err, ShouldBeNil)
	out, err := io.ReadAll(r)
	So(err, ShouldBeNil)
	return out
}

func TestPayload(t *testing.T) {
	Convey("Given an event", t, func() {
		p := sink.NewPayload("user-1", testEvent())

		Convey("Then the payload follows the backend contract", func() {
			So(p.UserID, ShouldEqual, "user-1")
			So(p.Sender, ShouldEqual, "+15550001")
			So(p.Message, ShouldEqual, "Your code is 4821")
			So(p.MessageContent, ShouldEqual, p.Message)
			So(p.Time, ShouldEqual, "2026-03-09T14:05:06.789Z")
		})

		Convey("Then it encodes with the expected keys", func() {
			b, err := json.Marshal(p)
			So(err, ShouldBeNil)
			for _, key := range []string{`"userId"`, `"sender"`, `"message"`, `"messageContent"`, `"time"`} {
				So(string(b), ShouldContainSubstring, key)
			}
		})
	})
}

func TestSubjectID(t *testing.T) {
	Convey("Given no configured subject id", t, func() {
		a := sink.SubjectID("")
		b := sink.SubjectID("")

		Convey("Then one device id is generated per process", func() {
			So(a, ShouldNotBeEmpty)
			So(a, ShouldEqual, b)
			So(sink.SubjectID("configured"), ShouldEqual, "configured")
		})
	})
}

func TestHTTPSink(t *testing.T) {
	Convey("Given a backend accepting messages", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		got := &captured{}
		status := http.StatusOK

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			got.mu.Lock()
			got.headers = r.Header.Clone()
			got.body = body
			got.path = r.URL.Path
			got.mu.Unlock()
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		Convey("When sending a plain JSON message", func() {
			s, err := sink.NewHTTPSink(srv.URL+"/", "/AI/ClassifyMessage", sink.WithSubjectID("user-7"))
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, "http")

			err = s.Send(ctx, testEvent())

			Convey("Then the backend receives the payload", func() {
				So(err, ShouldBeNil)
				So(got.path, ShouldEqual, "/AI/ClassifyMessage")
				So(got.headers.Get("Content-Type"), ShouldEqual, "application/json")
				So(got.headers.Get("X-Request-ID"), ShouldNotBeEmpty)

				var p sink.Payload
				So(json.Unmarshal(got.body, &p), ShouldBeNil)
				So(p.UserID, ShouldEqual, "user-7")
				So(p.Message, ShouldEqual, "Your code is 4821")
			})
		})

		Convey("When gzip is enabled", func() {
			s, err := sink.NewHTTPSink(srv.URL, "/ingest", sink.WithGzip(true), sink.WithHTTP2(true))
			So(err, ShouldBeNil)

			err = s.Send(ctx, testEvent())

			Convey("Then the body is compressed and labeled", func() {
				So(err, ShouldBeNil)
				So(got.headers.Get("Content-Encoding"), ShouldEqual, "gzip")
				var p sink.Payload
				So(json.Unmarshal(gunzip(got.body), &p), ShouldBeNil)
				So(p.Sender, ShouldEqual, "+15550001")
			})
		})

		Convey("When the backend rejects the message", func() {
			status = http.StatusBadRequest
			s, _ := sink.NewHTTPSink(srv.URL, "/ingest")

			err := s.Send(ctx, testEvent())

			Convey("Then delivery fails with the status", func() {
				So(errors.Is(err, sink.ErrDeliveryFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "400")
			})
		})

		Convey("When the backend is unreachable", func() {
			s, _ := sink.NewHTTPSink(srv.URL, "/ingest")
			srv.Close()

			Convey("Then delivery fails", func() {
				So(errors.Is(s.Send(ctx, testEvent()), sink.ErrDeliveryFailed), ShouldBeTrue)
			})
		})

		Convey("When the backend is slower than the timeout", func() {
			slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			}))
			defer slow.Close()
			s, _ := sink.NewHTTPSink(slow.URL, "/ingest", sink.WithTimeout(20*time.Millisecond))

			Convey("Then delivery fails instead of hanging", func() {
				So(errors.Is(s.Send(ctx, testEvent()), sink.ErrDeliveryFailed), ShouldBeTrue)
			})
		})
	})
}

type fakeS3 struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	Convey("Given an archive sink over a fake S3 client", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		client := &fakeS3{}
		clock := func() time.Time { return time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC) }
		s := sink.NewS3SinkWithClient(client, "archive", "/sms/", sink.WithClock(clock), sink.WithSubjectID("u"))

		So(s.Name(), ShouldEqual, "s3")

		Convey("When a message is sent", func() {
			err := s.Send(ctx, testEvent())

			Convey("Then one gzip JSON object is written under a dated key", func() {
				So(err, ShouldBeNil)
				So(client.inputs, ShouldHaveLength, 1)
				in := client.inputs[0]
				So(*in.Bucket, ShouldEqual, "archive")
				So(*in.Key, ShouldStartWith, "sms/2026/10/14/")
				So(strings.HasSuffix(*in.Key, ".json.gz"), ShouldBeTrue)
				So(*in.ContentEncoding, ShouldEqual, "gzip")

				var p sink.Payload
				So(json.Unmarshal(gunzip(client.bodies[0]), &p), ShouldBeNil)
				So(p.UserID, ShouldEqual, "u")
			})
		})

		Convey("When S3 rejects the object", func() {
			client.err = errors.New("AccessDenied")

			Convey("Then delivery fails", func() {
				err := s.Send(ctx, testEvent())
				So(errors.Is(err, sink.ErrDeliveryFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "s3://archive/")
			})
		})
	})
}

func TestLogSinkAndFactory(t *testing.T) {
	Convey("Given sink configuration", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		cfg := config.New()

		Convey("When the log sink is selected", func() {
			s, err := sink.NewFromConfig(ctx, cfg)

			Convey("Then sends always succeed", func() {
				So(err, ShouldBeNil)
				So(s.Name(), ShouldEqual, "log")
				So(s.Send(ctx, testEvent()), ShouldBeNil)
			})
		})

		Convey("When the http sink is selected", func() {
			cfg.SinkType = config.SinkHTTP
			cfg.SinkBaseURL = "http://10.0.0.5:5230"
			s, err := sink.NewFromConfig(ctx, cfg)

			Convey("Then the URL joins base and path", func() {
				So(err, ShouldBeNil)
				So(s.(*sink.HTTPSink).URL(), ShouldEqual, "http://10.0.0.5:5230/AI/ClassifyMessage")
			})
		})

		Convey("When an unknown sink is selected", func() {
			cfg.SinkType = "kafka"
			_, err := sink.NewFromConfig(ctx, cfg)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, sink.ErrUnknownSink), ShouldBeTrue)
			})
		})
	})
}
