package mailbox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkEntityMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"Content-Type: multipart/alternative; boundary=frontier",
		"",
		"--frontier",
		"Content-Type: text/plain",
		"",
		"hola en texto plano",
		"--frontier",
		"Content-Type: text/html",
		"",
		`<a href="https://x.test/account/update-primary-location?t=1">Confirm</a>`,
		"--frontier--",
		"",
	}, "\r\n")

	entity, err := message.Read(strings.NewReader(raw))
	require.NoError(t, err)

	m := Message{RawHeaders: headerBlock(entity)}
	require.NoError(t, walkEntity(entity, &m))

	assert.Contains(t, m.Text, "hola en texto plano")
	assert.Contains(t, m.HTML, "update-primary-location")
	assert.Contains(t, m.RawHeaders, "multipart/alternative")
}

func TestWalkEntitySinglePartDefaultsToText(t *testing.T) {
	raw := "Subject: plain\r\n\r\nsolo texto, sin tipo declarado\r\n"

	entity, err := message.Read(strings.NewReader(raw))
	require.NoError(t, err)

	m := Message{}
	require.NoError(t, walkEntity(entity, &m))

	assert.Contains(t, m.Text, "solo texto")
	assert.Empty(t, m.HTML)
}

func TestCollectMessagesKeepsUnparsableUIDs(t *testing.T) {
	section := &imap.BodySectionName{}

	good := &imap.Message{
		Uid: 7,
		Envelope: &imap.Envelope{
			Subject: "Confirm location",
			From:    []*imap.Address{{MailboxName: "info", HostName: "netflix.com"}},
		},
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString("Content-Type: text/plain\r\n\r\nhola\r\n"),
		},
	}
	// No body section at all: parse fails.
	bad := &imap.Message{Uid: 8, Envelope: &imap.Envelope{Subject: "broken"}}

	ch := make(chan *imap.Message, 2)
	ch <- good
	ch <- bad
	close(ch)

	messages, fetched := collectMessages(ch, section)

	require.Len(t, messages, 1)
	assert.Equal(t, uint32(7), messages[0].UID)
	assert.Equal(t, "info@netflix.com", messages[0].From)

	// The unparsable message is still part of the mark-read set, so it is
	// not refetched on every later cycle.
	assert.Equal(t, []uint32{7, 8}, fetched)
}

func TestHeaderBlockCarriesTransferEncoding(t *testing.T) {
	raw := strings.Join([]string{
		"Content-Type: text/html",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"<p>hola</p>",
		"",
	}, "\r\n")

	entity, err := message.Read(strings.NewReader(raw))
	require.NoError(t, err)

	block := headerBlock(entity)
	assert.Contains(t, strings.ToLower(block), "quoted-printable")
}
