package screenrec_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-rod/screenrec"
	"github.com/go-rod/screenrec/internal/fake"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// to prevent false positive of goleak
	http.DefaultClient = &http.Client{
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}

	goleak.VerifyTestMain(
		m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

// S test suite, every test gets a studio wired to fakes
type S struct {
	suite.Suite

	opener    *fake.Opener
	codec     *fake.Codec
	recorders chan *fake.Recorder
	sleep     utils.Sleeper
	dir       string
	studio    *screenrec.Studio
}

func Test(t *testing.T) {
	suite.Run(t, new(S))
}

func (s *S) SetupTest() {
	s.opener = &fake.Opener{}
	s.codec = fake.NewCodec()
	s.recorders = make(chan *fake.Recorder, 10)
	s.sleep = func(ctx context.Context) error { return ctx.Err() }
	s.dir = s.T().TempDir()

	pm := preview.NewManager(s.opener, preview.NewStore(time.Minute), "http://127.0.0.1:7317").
		Logger(utils.LoggerQuiet).
		Sleeper(func() utils.Sleeper { return utils.CountSleeper(0) })

	s.studio = screenrec.New(pm, s.codec, fake.Recorders(s.recorders)).
		Logger(utils.LoggerQuiet).
		Dir(s.dir)

	s.studio.Capture().Sleeper(func() utils.Sleeper {
		return func(ctx context.Context) error { return s.sleep(ctx) }
	})
}

func (s *S) TearDownTest() {
	s.NoError(s.studio.Close())
}
