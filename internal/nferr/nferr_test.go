package nferr_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/free5gc/coresim/internal/nferr"
)

var testKindCases = []struct {
	name           string
	err            error
	expectedKind   nferr.Kind
	expectedStatus int
}{
	{
		name:           "testNotFound",
		err:            nferr.NotFound("UE %s not found", "imsi-1"),
		expectedKind:   nferr.KindNotFound,
		expectedStatus: http.StatusNotFound,
	},
	{
		name:           "testAuth",
		err:            nferr.Auth("authentication failed"),
		expectedKind:   nferr.KindAuth,
		expectedStatus: http.StatusUnauthorized,
	},
	{
		name:           "testNoSliceAvailable",
		err:            nferr.NoSliceAvailable("no slices configured"),
		expectedKind:   nferr.KindNoSliceAvailable,
		expectedStatus: http.StatusNotFound,
	},
	{
		name:           "testUENotRegistered",
		err:            nferr.UENotRegistered("UE not registered"),
		expectedKind:   nferr.KindUENotRegistered,
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "testValidation",
		err:            nferr.Validation("supi required"),
		expectedKind:   nferr.KindValidation,
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "testStoreUnavailable",
		err:            nferr.StoreUnavailable(fmt.Errorf("connection reset"), "look up UE"),
		expectedKind:   nferr.KindStoreUnavailable,
		expectedStatus: http.StatusInternalServerError,
	},
	{
		name:           "testForeignError",
		err:            fmt.Errorf("some other error"),
		expectedKind:   nferr.KindUnknown,
		expectedStatus: http.StatusInternalServerError,
	},
}

func TestKindOfAndHTTPStatus(t *testing.T) {
	for _, testCase := range testKindCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expectedKind, nferr.KindOf(testCase.err))
			assert.Equal(t, testCase.expectedStatus, nferr.HTTPStatus(testCase.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	wrapped := errors.Wrap(nferr.NotFound("policy missing"), "get policy")
	assert.Equal(t, nferr.KindNotFound, nferr.KindOf(wrapped))
}

func TestStoreUnavailableNilCause(t *testing.T) {
	assert.NoError(t, nferr.StoreUnavailable(nil, "ignored"))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := nferr.StoreUnavailable(fmt.Errorf("timeout"), "count documents")
	assert.Contains(t, err.Error(), "count documents")
	assert.Contains(t, err.Error(), "timeout")
}
