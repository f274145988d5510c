package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParseMessagePlain(t *testing.T) {
	raw := crlf(`Message-ID: <abc123@example.com>
From: "Alice Example" <alice@example.com>
To: bob@example.com, "Carol" <carol@example.com>
Subject: =?UTF-8?B?Q2Fmw6k=?= meeting

Please review the draft.
`)

	email, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "abc123@example.com", email.ID)
	assert.Equal(t, "Café meeting", email.Subject)
	assert.Equal(t, "alice@example.com", email.From)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, email.To)
	assert.Equal(t, "Please review the draft.\r\n", email.Body)
	assert.Contains(t, email.Headers, "Subject")
}

func TestParseMessageMultipart(t *testing.T) {
	raw := crlf(`From: alice@example.com
Subject: Report
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

VGhlIHJlcG9ydCBpcyBhdHRhY2hlZC4=
--inner
Content-Type: text/html; charset=utf-8

<p>The report is <b>attached</b>.</p>
--inner--
--outer
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

secret attachment text
--outer--
`)

	email, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "The report is attached.", email.Body)
	assert.NotContains(t, email.Body, "secret attachment")
}

func TestParseMessageHTMLOnly(t *testing.T) {
	raw := crlf(`From: alice@example.com
Subject: News
Content-Type: text/html; charset=utf-8

<html><body><h1>Quarterly update</h1><p>Revenue grew.</p></body></html>
`)

	email, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, email.Body, "Quarterly update")
	assert.Contains(t, email.Body, "Revenue grew.")
	assert.NotContains(t, email.Body, "<p>")
}

func TestParseMessageTransferEncodings(t *testing.T) {
	t.Run("quoted-printable", func(t *testing.T) {
		raw := crlf(`From: a@example.com
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

caf=C3=A9 =
soon
`)
		email, err := ParseMessage(strings.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, "café soon\r\n", email.Body)
	})

	t.Run("latin1", func(t *testing.T) {
		raw := "From: a@example.com\r\nContent-Type: text/plain; charset=iso-8859-1\r\n\r\ncaf\xe9\r\n"
		email, err := ParseMessage(strings.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, "café\r\n", email.Body)
	})
}

func TestParseMessageMalformed(t *testing.T) {
	_, err := ParseMessage(strings.NewReader("this is not a message"))
	assert.Error(t, err)
}

func TestDecodeHeader(t *testing.T) {
	assert.Equal(t, "plain", decodeHeader("plain"))
	assert.Equal(t, "¡Hola!", decodeHeader("=?ISO-8859-1?Q?=A1Hola!?="))
	assert.Equal(t, "=?bogus", decodeHeader("=?bogus"))
}
