package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
)

type fakeSource struct {
	fps       float64
	count     int
	failAt    int
	panicAt   int
	reads     []int
	closed    int
	frameSize int
}

func newFakeSource(count int, fps float64) *fakeSource {
	return &fakeSource{fps: fps, count: count, failAt: -1, panicAt: -1, frameSize: 4}
}

func (s *fakeSource) FrameRate() float64 { return s.fps }
func (s *fakeSource) FrameCount() int    { return s.count }

func (s *fakeSource) ReadFrame(_ context.Context, index int) (*entity.RawFrame, error) {
	if index == s.panicAt {
		panic("decoder exploded")
	}
	s.reads = append(s.reads, index)
	if index == s.failAt {
		return nil, fmt.Errorf("%w: frame %d", entity.ErrDecodeFailure, index)
	}
	pix := make([]byte, s.frameSize*s.frameSize*3)
	pix[0] = byte(index)
	return &entity.RawFrame{Width: s.frameSize, Height: s.frameSize, Order: entity.ChannelOrderBGR, Pix: pix}, nil
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

type fakeOpener struct {
	src  *fakeSource
	err  error
	refs []string
}

func (o *fakeOpener) Open(_ context.Context, reference string) (port.FrameSource, error) {
	o.refs = append(o.refs, reference)
	if o.err != nil {
		return nil, o.err
	}
	return o.src, nil
}

type fakeEncoder struct {
	err error
}

func (e *fakeEncoder) Encode(frame *entity.RawFrame, _ entity.EncodeOptions) (*entity.EncodedFrame, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &entity.EncodedFrame{
		Data:        []byte{0xff, 0xd8, frame.Pix[0]},
		Width:       frame.Width,
		Height:      frame.Height,
		ContentType: "image/jpeg",
	}, nil
}

type fakeKeyframes struct{}

func (fakeKeyframes) StoreKeyframe(_ context.Context, guideID, order int, frame *entity.EncodedFrame) (string, error) {
	return fmt.Sprintf("kf://%d/%d/%x", guideID, order, frame.Data), nil
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]entity.Job{}}
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &job, nil
}

type fakeGuideRepo struct {
	saved []*entity.Guide
}

func (r *fakeGuideRepo) Save(_ context.Context, g *entity.Guide) error {
	r.saved = append(r.saved, g)
	return nil
}

func (r *fakeGuideRepo) FindLatest(_ context.Context, guideID int) (*entity.Guide, error) {
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].GuideID == guideID {
			return r.saved[i], nil
		}
	}
	return nil, entity.ErrGuideNotFound
}

type fakeArchives struct {
	keys  []string
	sizes []int64
	err   error
}

func (a *fakeArchives) UploadArchive(_ context.Context, key string, r io.Reader, size int64) error {
	if a.err != nil {
		return a.err
	}
	n, _ := io.Copy(io.Discard, r)
	a.keys = append(a.keys, key)
	a.sizes = append(a.sizes, n)
	return nil
}

type fakeArchiver struct {
	entries []port.ArchiveEntry
}

func (z *fakeArchiver) CreateArchive(_ context.Context, entries []port.ArchiveEntry, w io.Writer) error {
	z.entries = entries
	for _, e := range entries {
		if _, err := w.Write(e.Data); err != nil {
			return err
		}
	}
	return nil
}

type fakePublisher struct {
	statuses [][]byte
	dlq      [][]byte
	reasons  []string
	requests [][]byte
}

func (p *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *fakePublisher) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	p.dlq = append(p.dlq, msg)
	p.reasons = append(p.reasons, reason)
	return nil
}

func (p *fakePublisher) PublishRequest(_ context.Context, msg []byte) error {
	p.requests = append(p.requests, msg)
	return nil
}

type fakeCallbacks struct {
	urls     []string
	payloads []entity.CallbackPayload
}

func (c *fakeCallbacks) SendCallback(_ context.Context, url string, payload entity.CallbackPayload) error {
	c.urls = append(c.urls, url)
	c.payloads = append(c.payloads, payload)
	return nil
}

type fakeNotifier struct {
	emails []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, email, _ string, _ int, _, _ string) error {
	n.emails = append(n.emails, email)
	return nil
}
