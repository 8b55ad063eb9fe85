package odoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var methodNameExpr = regexp.MustCompile(`<methodName>([^<]+)</methodName>`)

// fakeOdoo answers XML-RPC calls with canned bodies keyed by "<service>:<method>"
// for common/db calls, and by "object:<model>.<method>" for execute_kw.
type fakeOdoo struct {
	mu        sync.Mutex
	responses map[string]string
	requests  []string
}

func newFakeOdoo() *fakeOdoo {
	return &fakeOdoo{responses: map[string]string{}}
}

func (f *fakeOdoo) on(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = value
}

func (f *fakeOdoo) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

var executeTargetExpr = regexp.MustCompile(`(?s)<methodName>execute_kw</methodName>.*?<param>.*?</param>\s*<param>.*?</param>\s*<param>.*?</param>\s*<param><value><string>([^<]+)</string></value></param>\s*<param><value><string>([^<]+)</string></value></param>`)

func (f *fakeOdoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	service := strings.TrimPrefix(r.URL.Path, "/xmlrpc/2/")

	f.mu.Lock()
	f.requests = append(f.requests, string(body))
	f.mu.Unlock()

	key := service
	if m := methodNameExpr.FindStringSubmatch(string(body)); m != nil {
		key = service + ":" + m[1]
	}
	if m := executeTargetExpr.FindStringSubmatch(string(body)); m != nil {
		key = "object:" + m[1] + "." + m[2]
	}

	f.mu.Lock()
	value, ok := f.responses[key]
	f.mu.Unlock()
	w.Header().Set("Content-Type", "text/xml")
	if !ok {
		_, _ = fmt.Fprint(w, faultResponse(1, "no fake response for "+key))
		return
	}
	if strings.HasPrefix(value, "<fault>") {
		_, _ = fmt.Fprintf(w, `<?xml version="1.0"?><methodResponse>%s</methodResponse>`, value)
		return
	}
	_, _ = fmt.Fprintf(w, `<?xml version="1.0"?><methodResponse><params><param><value>%s</value></param></params></methodResponse>`, value)
}

func faultResponse(code int, message string) string {
	return fmt.Sprintf(`<?xml version="1.0"?><methodResponse>%s</methodResponse>`, fault(code, message))
}

func fault(code int, message string) string {
	return fmt.Sprintf(`<fault><value><struct>`+
		`<member><name>faultCode</name><value><int>%d</int></value></member>`+
		`<member><name>faultString</name><value><string>%s</string></value></member>`+
		`</struct></value></fault>`, code, message)
}

func newTestClient(t *testing.T) (*Client, *fakeOdoo) {
	t.Helper()
	fake := newFakeOdoo()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, fake
}

var testSession = Session{DB: "acme", UID: 2, Login: "admin", Secret: "secret"}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("ftp://odoo.local")
	assert.Error(t, err)
}

func TestClient_Authenticate(t *testing.T) {
	client, fake := newTestClient(t)

	t.Run("success returns uid", func(t *testing.T) {
		fake.on("common:authenticate", "<int>7</int>")

		uid, err := client.Authenticate(context.Background(), "acme", "admin", "admin")
		require.NoError(t, err)
		assert.Equal(t, 7, uid)
		assert.Contains(t, fake.lastRequest(), "<string>acme</string>")
	})

	t.Run("false means invalid credentials", func(t *testing.T) {
		fake.on("common:authenticate", "<boolean>0</boolean>")

		_, err := client.Authenticate(context.Background(), "acme", "admin", "wrong")
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})
}

func TestClient_SearchRead(t *testing.T) {
	client, fake := newTestClient(t)
	fake.on("object:res.partner.search_read", `<array><data>`+
		`<value><struct>`+
		`<member><name>id</name><value><int>3</int></value></member>`+
		`<member><name>name</name><value><string>Azure Interior</string></value></member>`+
		`<member><name>parent_id</name><value><boolean>0</boolean></value></member>`+
		`<member><name>country_id</name><value><array><data><value><int>21</int></value><value><string>Belgium</string></value></data></array></value></member>`+
		`</struct></value>`+
		`</data></array>`)

	records, err := client.SearchRead(context.Background(), testSession, ModelPartner,
		Where("is_company", "=", true), Options{Fields: []string{"name"}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 3, rec.ID())
	assert.Equal(t, "Azure Interior", rec.String("name"))
	assert.Equal(t, "", rec.String("parent_id"))
	id, name := rec.Many2One("country_id")
	assert.Equal(t, 21, id)
	assert.Equal(t, "Belgium", name)

	req := fake.lastRequest()
	assert.Contains(t, req, "<string>is_company</string>")
	assert.Contains(t, req, "<name>limit</name>")
}

func TestClient_SearchCountAndCreate(t *testing.T) {
	client, fake := newTestClient(t)
	fake.on("object:sale.order.search_count", "<int>42</int>")
	fake.on("object:sale.order.create", "<int>99</int>")

	count, err := client.SearchCount(context.Background(), testSession, ModelSaleOrder, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, count)

	id, err := client.Create(context.Background(), testSession, ModelSaleOrder, map[string]any{"partner_id": 3})
	require.NoError(t, err)
	assert.Equal(t, 99, id)
}

func TestClient_ReadOne_NotFound(t *testing.T) {
	client, fake := newTestClient(t)
	fake.on("object:res.partner.search", "<array><data></data></array>")

	_, err := client.ReadOne(context.Background(), testSession, ModelPartner, 404, nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestClient_FaultClassification(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    error
		kind    FaultKind
	}{
		{
			name:    "unknown model",
			message: "Traceback ...\nKeyError: Object x.model doesn't exist",
			want:    ErrModelNotFound,
			kind:    FaultModelNotFound,
		},
		{
			name:    "access error",
			message: "Traceback ...\nodoo.exceptions.AccessError: You are not allowed to access 'Journal Entry'",
			want:    ErrAccessDenied,
			kind:    FaultAccess,
		},
		{
			name:    "validation error",
			message: "Traceback ...\nodoo.exceptions.ValidationError: The VAT number is invalid",
			want:    ErrValidation,
			kind:    FaultValidation,
		},
		{
			name:    "user error",
			message: "Traceback ...\nodoo.exceptions.UserError: You cannot delete a posted entry",
			want:    ErrUserError,
			kind:    FaultUser,
		},
		{
			name:    "missing method",
			message: "AttributeError: type object 'res.partner' has no attribute 'action_fly'",
			want:    ErrMethodNotFound,
			kind:    FaultMethodNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, fake := newTestClient(t)
			fake.on("object:res.partner.write", fault(2, tt.message))

			err := client.Write(context.Background(), testSession, ModelPartner, []int{1}, map[string]any{"name": "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var rpcErr *RPCError
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, tt.kind, rpcErr.Kind)
			assert.Equal(t, ModelPartner, rpcErr.Model)
		})
	}
}

func TestClient_Execute_RequiresSession(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Execute(context.Background(), Session{}, ModelPartner, "read", nil, nil)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestClient_Execute_ContextCanceled(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Execute(ctx, testSession, ModelPartner, "read", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_DatabaseService(t *testing.T) {
	client, fake := newTestClient(t)
	fake.on("db:list", `<array><data><value><string>acme</string></value><value><string>demo</string></value></data></array>`)
	fake.on("db:db_exist", "<boolean>1</boolean>")
	fake.on("db:duplicate_database", "<boolean>1</boolean>")

	dbs, err := client.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "demo"}, dbs)

	exists, err := client.DatabaseExists(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.DuplicateDatabase(context.Background(), "master", "acme", "acme_copy", true))
	assert.Contains(t, fake.lastRequest(), "<string>acme_copy</string>")
}

func TestClient_DuplicateDatabase_Busy(t *testing.T) {
	client, fake := newTestClient(t)
	fake.on("db:duplicate_database", fault(1, `source database "acme" is being accessed by other users`))

	err := client.DuplicateDatabase(context.Background(), "master", "acme", "acme_copy", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is being accessed by other users")
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveRPC(service, model, method string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, fmt.Sprintf("%s/%s/%s/%t", service, model, method, err == nil))
}

func TestClient_Observer(t *testing.T) {
	fake := newFakeOdoo()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	fake.on("object:res.partner.search_count", "<int>1</int>")

	obs := &recordingObserver{}
	client, err := NewClient(srv.URL, WithObserver(obs))
	require.NoError(t, err)

	_, err = client.SearchCount(context.Background(), testSession, ModelPartner, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"object/res.partner/search_count/true"}, obs.calls)
}
