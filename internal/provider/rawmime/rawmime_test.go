package rawmime_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/provider/rawmime"
)

const simpleMessage = `Message-Id: <abc@provider>
In-Reply-To: <root@provider>
References: <root@provider> <mid@provider>
From: Sender <sender@elsewhere.net>
To: a@x.com, second@x.com
Cc: cc@elsewhere.net
Delivered-To: a@x.com
Date: Sun, 1 Mar 2026 10:00:00 +0000
Subject: Hello
Content-Type: text/plain

hi there
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseSimpleMessage(t *testing.T) {
	msg, err := rawmime.New().Parse(crlf(simpleMessage))
	require.NoError(t, err)

	assert.Equal(t, "<abc@provider>", msg.ExternalID)
	assert.Equal(t, "<root@provider>", msg.InReplyTo)
	assert.Equal(t, []string{"<root@provider>", "<mid@provider>"}, msg.References)
	assert.Equal(t, "sender@elsewhere.net", msg.FromAddress)
	assert.Equal(t, []string{"a@x.com", "second@x.com"}, msg.ToAddresses)
	assert.Equal(t, []string{"cc@elsewhere.net"}, msg.CCAddresses)
	assert.Equal(t, "a@x.com", msg.RecipientAddress)
	assert.Equal(t, "Hello", msg.Subject)
	assert.Equal(t, "hi there", strings.TrimSpace(msg.BodyText))
	assert.Equal(t, 2026, msg.ReceivedAt.Year())
}

func TestParseMultipartWithAttachment(t *testing.T) {
	message := `Message-Id: <with-file@provider>
From: sender@elsewhere.net
To: a@x.com
Subject: With attachment
Content-Type: multipart/mixed; boundary="xyz"

--xyz
Content-Type: text/plain

see attached
--xyz
Content-Type: text/plain; name="note.txt"
Content-Disposition: attachment; filename="note.txt"

hello file
--xyz--
`

	msg, err := rawmime.New().Parse(crlf(message))
	require.NoError(t, err)

	assert.Equal(t, "see attached", strings.TrimSpace(msg.BodyText))
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "note.txt", msg.Attachments[0].Filename)
	assert.Equal(t, "hello file", strings.TrimSpace(string(msg.Attachments[0].Content)))
}

func TestParseRecipientFallsBackToFirstTo(t *testing.T) {
	message := `Message-Id: <abc@provider>
From: sender@elsewhere.net
To: a@x.com
Subject: Hello
Content-Type: text/plain

hi
`

	msg, err := rawmime.New().Parse(crlf(message))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", msg.RecipientAddress)
}

func TestParseSynthesizesMessageID(t *testing.T) {
	message := `From: sender@elsewhere.net
To: a@x.com
Subject: Hello
Content-Type: text/plain

hi
`

	msg, err := rawmime.New().Parse(crlf(message))
	require.NoError(t, err)
	assert.Contains(t, msg.ExternalID, "@mailfold.generated")
}

func TestParseNoRecipient(t *testing.T) {
	message := `Message-Id: <abc@provider>
From: sender@elsewhere.net
Subject: Hello
Content-Type: text/plain

hi
`

	_, err := rawmime.New().Parse(crlf(message))
	assert.ErrorIs(t, err, ingest.ErrMalformedPayload)
}
