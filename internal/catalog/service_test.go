package catalog

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/quickmed/storefront/internal/domain/catalog"
)

type fakeAPI struct {
	lastPath  string
	lastQuery url.Values
	response  any
}

func (f *fakeAPI) Get(ctx context.Context, path string, query url.Values, out any) error {
	f.lastPath = path
	f.lastQuery = query
	if f.response == nil || out == nil {
		return nil
	}
	data, err := json.Marshal(f.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

var _ catalogAPI = (*fakeAPI)(nil)

func TestMedicines_BuildsFilterQuery(t *testing.T) {
	fake := &fakeAPI{response: []catalogdomain.Medicine{
		{ID: 1, Name: "Amoxicillin 500mg", Price: decimal.RequireFromString("12.50"), RequiresPrescription: true},
	}}
	svc := New(fake)

	got, err := svc.Medicines(context.Background(), 3, "  amox ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].RequiresPrescription)
	assert.Equal(t, "/medicines", fake.lastPath)
	assert.Equal(t, "3", fake.lastQuery.Get("category_id"))
	assert.Equal(t, "amox", fake.lastQuery.Get("search"))
}

func TestMedicines_OmitsEmptyFilters(t *testing.T) {
	fake := &fakeAPI{}
	svc := New(fake)

	_, err := svc.Medicines(context.Background(), 0, "   ")
	require.NoError(t, err)
	assert.Empty(t, fake.lastQuery.Get("category_id"))
	assert.Empty(t, fake.lastQuery.Get("search"))
}

func TestMedicine(t *testing.T) {
	fake := &fakeAPI{response: catalogdomain.Medicine{ID: 7, Name: "Cetirizine 10mg", Stock: 4}}
	svc := New(fake)

	got, err := svc.Medicine(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "/medicines/7", fake.lastPath)
	assert.True(t, got.InStock())
}

func TestCategories(t *testing.T) {
	fake := &fakeAPI{response: []catalogdomain.Category{{ID: 1, Name: "Antibiotics"}}}
	svc := New(fake)

	got, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/categories", fake.lastPath)
}
