package sendgrid

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorclaims-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
)

type stubSender struct {
	resp *rest.Response
	err  error
	got  *mail.SGMailV3
}

func (s *stubSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	s.got = email
	return s.resp, s.err
}

func validConfig() config.SendgridConfig {
	return config.SendgridConfig{APIKey: "SG.key", DefaultFrom: "noreply@example.com", AdminEmail: "ops@example.com"}
}

func TestNewMailerRequiresKeyAndFrom(t *testing.T) {
	_, err := NewMailer(config.SendgridConfig{DefaultFrom: "noreply@example.com"})
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewMailer(config.SendgridConfig{APIKey: "SG.key"})
	assert.ErrorIs(t, err, errFromRequired)
}

func TestSendBuildsMessage(t *testing.T) {
	stub := &stubSender{resp: &rest.Response{StatusCode: 202}}
	mailer, err := NewMailer(validConfig(), WithFromName("Directory Ops"), withSender(stub))
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		To:      "ops@example.com",
		Subject: "Listing Upgraded: Acme → pro",
		Text:    "Acme upgraded",
		HTML:    "<p>Acme upgraded</p>",
	})
	require.NoError(t, err)

	require.NotNil(t, stub.got)
	assert.Equal(t, "Listing Upgraded: Acme → pro", stub.got.Subject)
	assert.Equal(t, "noreply@example.com", stub.got.From.Address)
	assert.Equal(t, "Directory Ops", stub.got.From.Name)
	require.Len(t, stub.got.Personalizations, 1)
	require.Len(t, stub.got.Personalizations[0].To, 1)
	assert.Equal(t, "ops@example.com", stub.got.Personalizations[0].To[0].Address)
}

func TestSendMapsFailures(t *testing.T) {
	cases := []struct {
		name string
		stub *stubSender
	}{
		{name: "transport error", stub: &stubSender{err: errors.New("dial tcp: timeout")}},
		{name: "rejected", stub: &stubSender{resp: &rest.Response{StatusCode: 401, Body: `{"errors":[{"message":"bad key"}]}`}}},
		{name: "empty response", stub: &stubSender{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailer, err := NewMailer(validConfig(), withSender(tc.stub))
			require.NoError(t, err)

			err = mailer.Send(context.Background(), Message{To: "ops@example.com", Subject: "s", Text: "t"})
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
		})
	}
}

func TestSendValidatesMessage(t *testing.T) {
	mailer, err := NewMailer(validConfig(), withSender(&stubSender{resp: &rest.Response{StatusCode: 202}}))
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{Subject: "s"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	err = mailer.Send(context.Background(), Message{To: "ops@example.com"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	var nilMailer *Mailer
	assert.Error(t, nilMailer.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
}
