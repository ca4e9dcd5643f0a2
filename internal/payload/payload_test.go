package payload

import (
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullPayload(t *testing.T) {
	p, err := Decode([]byte(`{"notification":{"title":"Hi","body":"There"},"data":{"type":"application_status_update","status":"approved"}}`))
	require.NoError(t, err)
	require.Equal(t, "Hi", p.Title())
	require.Equal(t, "There", p.Body())
	require.Equal(t, "approved", p.Get("status"))
}

func TestDecodeAppliesDefaults(t *testing.T) {
	p, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, DefaultTitle, p.Title())
	require.Empty(t, p.Body())
	require.Empty(t, p.Get("type"))
	require.NotNil(t, p.DataCopy())

	p, err = Decode([]byte(`{"notification":{"title":""}}`))
	require.NoError(t, err)
	require.Equal(t, DefaultTitle, p.Title())

	p, err = Decode([]byte(`{"notification":{"title":"   "}}`))
	require.NoError(t, err)
	require.Equal(t, "   ", p.Title())
}

func TestDecodeCoercesDataValues(t *testing.T) {
	p, err := Decode([]byte(`{"data":{"count":3,"urgent":true,"nested":{"a":1},"none":null}}`))
	require.NoError(t, err)
	require.Equal(t, "3", p.Get("count"))
	require.Equal(t, "1", p.Get("urgent"))
	require.JSONEq(t, `{"a":1}`, p.Get("nested"))
	require.Equal(t, "", p.Get("none"))
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	require.Error(t, err)
}

func TestFirebaseMessageRoundTrip(t *testing.T) {
	msg := &messaging.Message{
		Notification: &messaging.Notification{Title: "Approved", Body: ""},
		Data:         map[string]string{"type": "application_status_update"},
	}
	p := FromMessage(msg)
	require.Equal(t, "Approved", p.Title())
	require.Nil(t, p.Notification.Body)
	require.Equal(t, "application_status_update", p.Get("type"))

	out := ToMessage(p, "tok")
	require.Equal(t, "tok", out.Token)
	require.Equal(t, "Approved", out.Notification.Title)
	require.Equal(t, msg.Data, out.Data)

	require.Equal(t, Payload{}, FromMessage(nil))
}
