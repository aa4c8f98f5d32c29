package inventory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/catering-backend/pkg/db"
	"github.com/angelmondragon/catering-backend/pkg/db/models"
	"github.com/angelmondragon/catering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn))
	require.NoError(t, err)
	return svc, conn
}

func ptr[T any](v T) *T {
	return &v
}

func date(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, value)
	require.NoError(t, err)
	return &parsed
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)

	_, err = NewService(&Repository{}, nil)
	require.Error(t, err)
}

func TestCreateAndListProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P2", ProductName: "Juice"})
	require.NoError(t, err)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	codes := []string{products[0].ProductCode, products[1].ProductCode}
	assert.ElementsMatch(t, []string{"P1", "P2"}, codes)
}

func TestCreateProductDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Other"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductDuplicate))
}

func TestCreateLotDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)

	_, err = svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotDuplicate))
}

func TestUpdateProductAppliesPartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{ProductName: ptr("  Sparkling water ")})
	require.NoError(t, err)
	assert.Equal(t, "P1", updated.ProductCode)
	assert.Equal(t, "Sparkling water", updated.ProductName)

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductNotFound))
}

func TestAddOrIncrementSumsQuantities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)

	first, err := svc.AddOrIncrement(ctx, AddLotItemInput{
		LotID:          lot.ID,
		ProductID:      product.ID,
		Quantity:       5,
		ExpirationDate: date(t, "2026-12-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, first.Quantity)

	second, err := svc.AddOrIncrement(ctx, AddLotItemInput{
		LotID:             lot.ID,
		ProductID:         product.ID,
		Quantity:          3,
		CertificationDate: date(t, "2026-11-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, second.Quantity)
	require.NotNil(t, second.ExpirationDate)
	assert.Equal(t, "2026-12-01", *second.ExpirationDate)
	require.NotNil(t, second.CertificationDate)
	assert.Equal(t, "2026-11-01", *second.CertificationDate)
	require.NotNil(t, second.Product)
	assert.Equal(t, "P1", second.Product.ProductCode)

	items, err := svc.ListLotItems(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddOrIncrementLocksLotRow(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	var locks atomic.Int32
	require.NoError(t, conn.Callback().Query().Before("gorm:query").Register("test:lot_lock", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok && tx.Statement.Table == "lots" {
			locks.Add(1)
		}
	}))

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)

	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), locks.Load())
}

func TestAddOrIncrementConcurrentAddsAreSummed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: product.ID, Quantity: 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := svc.ListLotItems(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2*workers, items[0].Quantity)
}

func TestAddOrIncrementValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)

	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: uuid.New(), ProductID: product.ID, Quantity: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))

	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductNotFound))

	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: product.ID, Quantity: -1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidQuantity))
}

func TestUpdateLotItemOverwritesOnlySuppliedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)
	item, err := svc.AddOrIncrement(ctx, AddLotItemInput{
		LotID:          lot.ID,
		ProductID:      product.ID,
		Quantity:       4,
		ExpirationDate: date(t, "2026-12-01"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateLotItem(ctx, item.ID, UpdateLotItemInput{Quantity: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Quantity)
	require.NotNil(t, updated.ExpirationDate)
	assert.Equal(t, "2026-12-01", *updated.ExpirationDate)

	_, err = svc.UpdateLotItem(ctx, item.ID, UpdateLotItemInput{Quantity: ptr(-2)})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidQuantity))

	_, err = svc.GetLotItem(ctx, uuid.New())
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotItemNotFound))
}

func TestGetLotNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetLot(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))

	_, err = svc.GetLotDetailed(ctx, uuid.New())
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))

	_, err = svc.ListLotItems(ctx, uuid.New())
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))
}

func TestDeleteLotCascades(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)
	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.CreateAssignment(ctx, CreateAssignmentInput{LotID: lot.ID, FlightAssigned: ptr("AA100")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLot(ctx, lot.ID))

	var items, assignments int64
	require.NoError(t, conn.Model(&models.LotItem{}).Where("lot_id = ?", lot.ID).Count(&items).Error)
	require.NoError(t, conn.Model(&models.Assignment{}).Where("lot_id = ?", lot.ID).Count(&assignments).Error)
	assert.Zero(t, items)
	assert.Zero(t, assignments)

	_, err = svc.GetProduct(ctx, product.ID)
	assert.NoError(t, err, "products survive lot deletion")

	err = svc.DeleteLot(ctx, lot.ID)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))
}

func TestDeleteProductCascadesLotItems(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)
	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	var items int64
	require.NoError(t, conn.Model(&models.LotItem{}).Count(&items).Error)
	assert.Zero(t, items)

	_, err = svc.GetLot(ctx, lot.ID)
	assert.NoError(t, err)
}

func TestUpsertForLotKeepsSingleAssignment(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)

	first, err := svc.UpsertForLot(ctx, UpsertAssignmentInput{LotID: lot.ID, Flight: ptr("AA100")})
	require.NoError(t, err)
	assert.Equal(t, "draft", first.Status)

	second, err := svc.UpsertForLot(ctx, UpsertAssignmentInput{
		LotID:  lot.ID,
		Flight: ptr("AA200"),
		Status: enums.AssignmentStatusReady,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.FlightAssigned)
	assert.Equal(t, "AA200", *second.FlightAssigned)
	assert.Equal(t, "ready", second.Status)

	third, err := svc.UpsertForLot(ctx, UpsertAssignmentInput{LotID: lot.ID, Status: enums.AssignmentStatusLoaded})
	require.NoError(t, err)
	assert.Equal(t, "AA200", *third.FlightAssigned, "flight kept when not supplied")
	assert.Equal(t, "loaded", third.Status)

	var count int64
	require.NoError(t, conn.Model(&models.Assignment{}).Where("lot_id = ?", lot.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.UpsertForLot(ctx, UpsertAssignmentInput{LotID: uuid.New()})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))
}

func TestAssignmentCRUD(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAssignment(ctx, CreateAssignmentInput{LotID: uuid.New()})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonLotNotFound))

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)

	created, err := svc.CreateAssignment(ctx, CreateAssignmentInput{LotID: lot.ID})
	require.NoError(t, err)
	assert.Equal(t, "draft", created.Status)
	assert.Nil(t, created.FlightAssigned)

	_, err = svc.CreateAssignment(ctx, CreateAssignmentInput{LotID: lot.ID, Status: "boarding"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	rejected := enums.AssignmentStatusRejected
	updated, err := svc.UpdateAssignment(ctx, created.ID, UpdateAssignmentInput{Status: &rejected})
	require.NoError(t, err)
	assert.Equal(t, "rejected", updated.Status)

	list, err := svc.ListAssignments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteAssignment(ctx, created.ID))
	_, err = svc.GetAssignment(ctx, created.ID)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonAssignmentNotFound))
}

func TestGetLotDetailedJoinsItemsAndAssignments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, CreateLotInput{LotCode: "L1"})
	require.NoError(t, err)
	water, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P1", ProductName: "Water"})
	require.NoError(t, err)
	juice, err := svc.CreateProduct(ctx, CreateProductInput{ProductCode: "P2", ProductName: "Juice"})
	require.NoError(t, err)
	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: water.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddOrIncrement(ctx, AddLotItemInput{LotID: lot.ID, ProductID: juice.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.UpsertForLot(ctx, UpsertAssignmentInput{LotID: lot.ID, Flight: ptr("AA100")})
	require.NoError(t, err)

	detail, err := svc.GetLotDetailed(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, "L1", detail.LotCode)
	require.Len(t, detail.Items, 2)
	for _, item := range detail.Items {
		require.NotNil(t, item.Product)
	}
	require.Len(t, detail.Assignments, 1)
	assert.Equal(t, "AA100", *detail.Assignments[0].FlightAssigned)

	products, err := svc.ListProductsInLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	lots, err := svc.ListLotsByProduct(ctx, juice.ID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, lot.ID, lots[0].ID)

	all, err := svc.ListAllLotItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPersistenceMapsOverlongValuesToValidation(t *testing.T) {
	err := persistence(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "22001"}), "db: insert lot")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = persistence(fmt.Errorf("connection reset"), "db: insert lot")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePersistence))
}
