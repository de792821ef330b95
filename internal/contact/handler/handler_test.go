package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconcile/internal/contact/handler"
	"reconcile/internal/contact/models"
	"reconcile/internal/contact/service"
	"reconcile/internal/contact/store"
	id "reconcile/pkg/domain"
	dErrors "reconcile/pkg/domain-errors"
	"reconcile/pkg/platform/sentinel"
	"reconcile/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemory()
	svc, err := service.New(st, service.NewShardedContactTx(st, 0))
	require.NoError(t, err)

	r := chi.NewRouter()
	handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, st
}

func TestHandleIdentify(t *testing.T) {
	testutil.Given(t, "an empty store", func(t *testing.T) {
		router, st := newRouter(t)

		testutil.When(t, "a new contact is identified", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify",
				`{"email":"lorraine@hillvalley.edu","phoneNumber":"123456"}`))

			testutil.Then(t, "the new primary is returned with empty secondaries", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONBody(t, rr, `{"contact":{
					"primaryContatctId":1,
					"emails":["lorraine@hillvalley.edu"],
					"phoneNumbers":["123456"],
					"secondaryContactIds":[]}}`)
			})
		})

		testutil.When(t, "a numeric phone number adds a new email", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify",
				`{"email":"mcfly@hillvalley.edu","phoneNumber":123456}`))

			testutil.Then(t, "the number matches the stored string", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONBody(t, rr, `{"contact":{
					"primaryContatctId":1,
					"emails":["lorraine@hillvalley.edu","mcfly@hillvalley.edu"],
					"phoneNumbers":["123456"],
					"secondaryContactIds":[2]}}`)
				assert.Equal(t, 2, st.Len())
			})
		})

		testutil.When(t, "the email is null", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify",
				`{"email":null,"phoneNumber":"123456"}`))

			testutil.Then(t, "the phone alone identifies the cluster", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				resp := testutil.UnmarshalResponse[handler.IdentifyResponse](t, rr)
				assert.Equal(t, int64(1), resp.Contact.PrimaryContactID)
				assert.Equal(t, 2, st.Len())
			})
		})
	})
}

func TestHandleIdentifyNumericPhoneForms(t *testing.T) {
	router, st := newRouter(t)

	for _, body := range []string{
		`{"email":"biff@hillvalley.edu","phoneNumber":1500}`,
		`{"email":"biff@hillvalley.edu","phoneNumber":1.5e3}`,
		`{"email":"biff@hillvalley.edu","phoneNumber":"1500"}`,
	} {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", body))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"contact":{
			"primaryContatctId":1,
			"emails":["biff@hillvalley.edu"],
			"phoneNumbers":["1500"],
			"secondaryContactIds":[]}}`)
	}
	assert.Equal(t, 1, st.Len())
}

func TestHandleIdentifyTrimsBeforeMatching(t *testing.T) {
	router, st := newRouter(t)

	for _, body := range []string{
		`{"email":"doc@hillvalley.edu"}`,
		`{"email":"  doc@hillvalley.edu\t"}`,
	} {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", body))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"contact":{
			"primaryContatctId":1,
			"emails":["doc@hillvalley.edu"],
			"phoneNumbers":[],
			"secondaryContactIds":[]}}`)
	}
	assert.Equal(t, 1, st.Len())

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify",
		`{"email":"Doc@hillvalley.edu"}`))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, 2, st.Len(), "case stays significant")
}

func TestHandleIdentifyValidation(t *testing.T) {
	router, st := newRouter(t)

	cases := []struct {
		name        string
		body        string
		status      int
		code        string
		description string
	}{
		{"both absent", `{}`, http.StatusBadRequest, "validation_error", "email or phoneNumber is required"},
		{"both null", `{"email":null,"phoneNumber":null}`, http.StatusBadRequest, "validation_error", "email or phoneNumber is required"},
		{"whitespace only", `{"email":"  ","phoneNumber":" "}`, http.StatusBadRequest, "validation_error", "email or phoneNumber is required"},
		{"empty body", ``, http.StatusBadRequest, "validation_error", "email or phoneNumber is required"},
		{"malformed json", `{"email":`, http.StatusBadRequest, "bad_request", "invalid request body"},
		{"boolean phone", `{"phoneNumber":true}`, http.StatusBadRequest, "bad_request", "invalid request body"},
		{"numeric email", `{"email":42}`, http.StatusBadRequest, "bad_request", "invalid request body"},
		{"zero phone", `{"phoneNumber":0}`, http.StatusBadRequest, "validation_error", "email or phoneNumber is required"},
		{"trailing data", `{"email":"doc@hillvalley.edu"} trailing`, http.StatusBadRequest, "bad_request", "invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", tc.body))
			testutil.AssertStatus(t, rr, tc.status)
			assert.JSONEq(t, `{"error":"`+tc.code+`","error_description":"`+tc.description+`"}`, rr.Body.String())
		})
	}
	assert.Equal(t, 0, st.Len())
}

func TestHandleGetContact(t *testing.T) {
	router, _ := newRouter(t)
	for _, body := range []string{
		`{"email":"george@hillvalley.edu","phoneNumber":"919191"}`,
		`{"email":"biffsucks@hillvalley.edu","phoneNumber":"717171"}`,
		`{"email":"george@hillvalley.edu","phoneNumber":"717171"}`,
	} {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", body))
		testutil.AssertStatusOK(t, rr)
	}

	t.Run("secondary id returns the merged cluster", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/contacts/2", nil))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"contact":{
			"primaryContatctId":1,
			"emails":["george@hillvalley.edu","biffsucks@hillvalley.edu"],
			"phoneNumbers":["919191","717171"],
			"secondaryContactIds":[2]}}`)
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/contacts/99", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("non numeric id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/contacts/abc", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

type failingService struct {
	err error
}

func (f failingService) Identify(context.Context, models.Observation) (*models.ConsolidatedView, error) {
	return nil, f.err
}

func (f failingService) View(context.Context, id.ContactID) (*models.ConsolidatedView, error) {
	return nil, f.err
}

func TestHandleIdentifyServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "storage failure hides details",
			err:    dErrors.Wrap(errors.New("connection refused"), dErrors.CodeInternal, "failed to find candidate contacts"),
			status: http.StatusInternalServerError,
			body:   `{"error":"internal_error"}`,
		},
		{
			name:   "consistency violation hides details",
			err:    dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInternal, "consistency violation: contact 2 is not a cluster primary"),
			status: http.StatusInternalServerError,
			body:   `{"error":"internal_error"}`,
		},
		{
			name:   "lock contention",
			err:    dErrors.New(dErrors.CodeConflict, "contact cluster changed concurrently, retry the request"),
			status: http.StatusConflict,
			body:   `{"error":"conflict","error_description":"contact cluster changed concurrently, retry the request"}`,
		},
		{
			name:   "timeout",
			err:    dErrors.Wrap(context.DeadlineExceeded, dErrors.CodeTimeout, "transaction aborted: context cancelled"),
			status: http.StatusGatewayTimeout,
			body:   `{"error":"timeout"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			handler.New(failingService{err: tc.err}, nil).Register(r)

			rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", `{"phoneNumber":"1"}`))
			testutil.AssertStatus(t, rr, tc.status)
			assert.JSONEq(t, tc.body, rr.Body.String())
		})
	}
}
