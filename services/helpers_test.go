package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/store"
	"github.com/stretchr/testify/require"
)

var pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

// createFileHeader builds a multipart.FileHeader the way gin hands one to a handler
func createFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	require.Len(t, form.File["image"], 1)
	return form.File["image"][0]
}

// seedUser stores an account and returns the actor for it
func seedUser(t *testing.T, s store.Store, name string, role models.Role) policy.Actor {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role, Location: "Springfield"}
	require.NoError(t, s.CreateUser(context.Background(), user))
	if role == models.RoleTechnician {
		profile := models.NewTechnicianProfile(user, "Plumbing")
		require.NoError(t, s.CreateTechnician(context.Background(), &profile))
	}
	return policy.Actor{ID: user.ID, Role: role}
}

// requireKind asserts err is a service error of the given kind and returns it
func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	svcErr, ok := err.(*Error)
	require.True(t, ok, "expected *services.Error, got %T: %v", err, err)
	require.Equal(t, kind, svcErr.Kind, svcErr.Error())
	return svcErr
}
