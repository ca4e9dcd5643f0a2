package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPayload(t *testing.T) {
	p, err := buildPayload("Hello", "", `{"link":"/orders/1"}`)
	require.NoError(t, err)
	require.Equal(t, "Hello", p.Title())
	require.Equal(t, "", p.Body())
	require.Equal(t, "/orders/1", p.Get("link"))

	p, err = buildPayload("", "", "")
	require.NoError(t, err)
	require.Nil(t, p.Notification)
	require.Equal(t, "New Notification", p.Title())

	_, err = buildPayload("", "", "{not json")
	require.Error(t, err)
}
