package alerts

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DryRunClient(t *testing.T) {
	ctx := context.Background()
	cc, _ := NewDryRunClient()
	separator := strings.Repeat("-", 79)

	// Email
	stdOut := os.Stdout

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	msg := Message{
		ToPhoneNumber: "",
		ToEmail:       "email@email.com",
		Title:         "My Alert Title",
		Body:          "My email content",
	}
	err = cc.SendMessage(ctx, msg)
	require.NoError(t, err)

	w.Close()
	os.Stdout = stdOut

	buf := new(strings.Builder)
	_, err = io.Copy(buf, r)
	require.NoError(t, err)

	expected := separator + `
Recipient: email@email.com
Subject: My Alert Title
Content: My email content
` + separator + "\n"
	assert.Equal(t, expected, buf.String())

	// SMS
	stdOut = os.Stdout

	r, w, err = os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	msg = Message{
		ToPhoneNumber: "+11111111111",
		ToEmail:       "",
		Title:         "My Alert Title",
		Body:          "My SMS content",
	}
	err = cc.SendMessage(ctx, msg)
	require.NoError(t, err)

	w.Close()
	os.Stdout = stdOut

	buf = new(strings.Builder)
	_, err = io.Copy(buf, r)
	require.NoError(t, err)

	expected = separator + `
Recipient: +11111111111
Subject: My Alert Title
Content: My SMS content
` + separator + "\n"
	assert.Equal(t, expected, buf.String())
}

func Test_DryRunClient_MessengerType(t *testing.T) {
	cc, err := NewDryRunClient()
	require.NoError(t, err)
	assert.Equal(t, MessengerTypeDryRun, cc.MessengerType())
}
