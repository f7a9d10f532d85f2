package cart

import (
	"context"
	"encoding/json"
	"net/url"
	"runtime"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmed/storefront/internal/api"
	cartdomain "github.com/quickmed/storefront/internal/domain/cart"
	"github.com/quickmed/storefront/internal/logging"
)

// fakeAPI scripts responses per method+path and records every call.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]any
	errs      map[string]error
	block     chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]any),
		errs:      make(map[string]error),
	}
}

func (f *fakeAPI) record(method, path string, out any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	key := method + " " + path
	f.calls = append(f.calls, key)
	resp, hasResp := f.responses[key]
	err := f.errs[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hasResp && out != nil {
		data, merr := json.Marshal(resp)
		if merr != nil {
			return merr
		}
		return json.Unmarshal(data, out)
	}
	return nil
}

func (f *fakeAPI) Get(ctx context.Context, path string, query url.Values, out any) error {
	return f.record("GET", path, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body, out any) error {
	return f.record("POST", path, out)
}

func (f *fakeAPI) Put(ctx context.Context, path string, body, out any) error {
	return f.record("PUT", path, out)
}

func (f *fakeAPI) Delete(ctx context.Context, path string, out any) error {
	return f.record("DELETE", path, out)
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

var _ cartAPI = (*fakeAPI)(nil)

// cartPayload mirrors the wire shape of GET /cart.
type cartPayload struct {
	Items []cartdomain.Item `json:"items"`
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rxItem(id int64) cartdomain.Item {
	return cartdomain.Item{ID: id, MedicineID: id * 10, Name: "Amoxicillin 500mg", UnitPrice: price("12.50"), Quantity: 1, RequiresPrescription: true}
}

func otcItem(id int64) cartdomain.Item {
	return cartdomain.Item{ID: id, MedicineID: id * 10, Name: "Paracetamol 500mg", UnitPrice: price("3.25"), Quantity: 2}
}

func TestLoad_ReplacesLocalStateAndDerivesFlag(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1), rxItem(2)}}
	svc := New(fake, logging.Nop())

	got, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.True(t, got.NeedsPrescription)
	assert.True(t, svc.NeedsPrescription())
}

func TestAdd_ReloadsFullCart(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1)}}
	svc := New(fake, logging.Nop())

	require.NoError(t, svc.Add(context.Background(), 10, 2, nil))
	assert.Equal(t, []string{"POST /cart/add", "GET /cart"}, fake.callLog())
	assert.Len(t, svc.Items(), 1)
}

func TestAdd_RejectsNonPositiveQuantityLocally(t *testing.T) {
	fake := newFakeAPI()
	svc := New(fake, logging.Nop())

	err := svc.Add(context.Background(), 10, 0, nil)
	require.True(t, api.IsValidation(err))
	assert.Zero(t, fake.callCount())
}

func TestSetQuantity_RejectsNonPositiveLocally(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1)}}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	before := svc.Items()
	loads := fake.callCount()

	for _, q := range []int{0, -1} {
		err := svc.SetQuantity(context.Background(), 1, q)
		require.True(t, api.IsValidation(err), "quantity %d", q)
	}
	assert.Equal(t, loads, fake.callCount())
	assert.Equal(t, before, svc.Items())
}

func TestSetQuantity_MutatesLocalOnlyAfterConfirmation(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1)}}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.SetQuantity(context.Background(), 1, 5))
	assert.Equal(t, 5, svc.Items()[0].Quantity)
}

func TestSetQuantity_ServerRejectionLeavesLocalUnchanged(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1)}}
	fake.errs["PUT /cart/update"] = &api.Error{Kind: api.KindValidation, Status: 400, Detail: "Not enough stock"}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	err = svc.SetQuantity(context.Background(), 1, 99)
	require.True(t, api.IsValidation(err))
	assert.Equal(t, "Not enough stock", api.Detail(err, ""))
	assert.Equal(t, 2, svc.Items()[0].Quantity)
}

func TestRemove_RecomputesPrescriptionFlagFromRemaining(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1), rxItem(2)}}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.True(t, svc.NeedsPrescription())

	require.NoError(t, svc.Remove(context.Background(), 2))
	assert.Len(t, svc.Items(), 1)
	assert.False(t, svc.NeedsPrescription())
}

func TestRemove_ServerFailureKeepsItem(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{rxItem(2)}}
	fake.errs["DELETE /cart/remove/2"] = &api.Error{Kind: api.KindServer, Status: 500, Detail: "server error"}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	err = svc.Remove(context.Background(), 2)
	require.True(t, api.IsServer(err))
	assert.Len(t, svc.Items(), 1)
	assert.True(t, svc.NeedsPrescription())
}

func TestClear_EmptiesLocalState(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1), rxItem(2)}}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background()))
	assert.Empty(t, svc.Items())
	assert.False(t, svc.NeedsPrescription())
	assert.True(t, svc.Total().IsZero())
}

func TestTotal_SumsLocalItemsWithoutNetwork(t *testing.T) {
	fake := newFakeAPI()
	fake.responses["GET /cart"] = cartPayload{Items: []cartdomain.Item{otcItem(1), rxItem(2)}}
	svc := New(fake, logging.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	calls := fake.callCount()

	// 2 * 3.25 + 1 * 12.50
	assert.True(t, svc.Total().Equal(price("19.00")))
	assert.Equal(t, calls, fake.callCount())
}

func TestMutations_RejectConcurrentOperation(t *testing.T) {
	fake := newFakeAPI()
	fake.block = make(chan struct{})
	svc := New(fake, logging.Nop())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- svc.Add(context.Background(), 10, 1, nil)
	}()
	<-started
	for !svc.Busy() {
		runtime.Gosched()
	}

	err := svc.SetQuantity(context.Background(), 1, 2)
	require.True(t, api.IsValidation(err))

	close(fake.block)
	require.NoError(t, <-done)
	assert.False(t, svc.Busy())
}
