package mongorepo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"ChipTrack/internal/model"
	"ChipTrack/internal/repo"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var sortFields = map[string]string{
	repo.SortCreatedAt:    "createdAt",
	repo.SortCustomerName: "customerName",
	repo.SortCost:         "cost",
	repo.SortStatus:       "status",
}

type itemRepo struct {
	coll *mongo.Collection
}

// NewItemRepository создаёт mongo-реализацию repo.ItemRepository.
func NewItemRepository(db *mongo.Database) repo.ItemRepository {
	return &itemRepo{coll: db.Collection(itemsCollection)}
}

func (r *itemRepo) Create(ctx context.Context, it *model.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = now
	}
	if _, err := r.coll.InsertOne(ctx, it); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicateJobNumber
		}
		return err
	}
	return nil
}

func (r *itemRepo) findOne(ctx context.Context, filter bson.M) (*model.Item, error) {
	var it model.Item
	err := r.coll.FindOne(ctx, filter).Decode(&it)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	return r.findOne(ctx, bson.M{"_id": id, "isDeleted": false})
}

func (r *itemRepo) FindForTracking(ctx context.Context, jobNumber, phoneNumber string) (*model.Item, error) {
	return r.findOne(ctx, bson.M{"jobNumber": jobNumber, "phoneNumber": phoneNumber, "isDeleted": false})
}

func (r *itemRepo) JobNumberExists(ctx context.Context, jobNumber string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"jobNumber": jobNumber}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *itemRepo) Update(ctx context.Context, it *model.Item) error {
	it.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"jobNumber":     it.JobNumber,
		"customerName":  it.CustomerName,
		"phoneNumber":   it.PhoneNumber,
		"brand":         it.Brand,
		"status":        it.Status,
		"issue":         it.Issue,
		"repairNotes":   it.RepairNotes,
		"cost":          it.Cost,
		"finalCost":     it.FinalCost,
		"dueDate":       it.DueDate,
		"statusHistory": it.StatusHistory,
		"updatedAt":     it.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": it.ID, "isDeleted": false}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicateJobNumber
		}
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *itemRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *itemRepo) BulkUpdateStatus(ctx context.Context, ids []string, status model.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (r *itemRepo) List(ctx context.Context, f repo.ItemFilter) ([]model.Item, error) {
	field, ok := sortFields[f.SortBy]
	if !ok {
		field = "createdAt"
	}
	dir := 1
	if f.SortDesc {
		dir = -1
	}
	sort := bson.D{{Key: field, Value: dir}}
	if field != "createdAt" {
		sort = append(sort, bson.E{Key: "createdAt", Value: -1})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	opts := options.Find().SetSort(sort)
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := r.coll.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, err
	}
	items := []model.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) Count(ctx context.Context, f repo.ItemFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, buildFilter(f))
}

func (r *itemRepo) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isDeleted": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[model.Status]int64, len(rows))
	for _, row := range rows {
		out[model.Status(row.Status)] = row.N
	}
	return out, nil
}

func (r *itemRepo) ListAll(ctx context.Context) ([]model.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	items := []model.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) RevenueByTechnician(ctx context.Context) ([]repo.RevenueRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isDeleted": false, "status": model.StatusDelivered}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$technicianName",
			"jobs":    bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$finalCost"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "revenue", Value: -1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		TechnicianName string  `bson:"_id"`
		Jobs           int64   `bson:"jobs"`
		Revenue        float64 `bson:"revenue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]repo.RevenueRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, repo.RevenueRow{TechnicianName: row.TechnicianName, Jobs: row.Jobs, Revenue: row.Revenue})
	}
	return out, nil
}

// buildFilter переводит ItemFilter в mongo-фильтр.
func buildFilter(f repo.ItemFilter) bson.M {
	filter := bson.M{"isDeleted": false}

	if tokens := repo.SearchTokens(f.Search); len(tokens) > 0 {
		// $text объединяет термины через ИЛИ
		filter["$text"] = bson.M{"$search": strings.Join(tokens, " ")}
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Technician != "" {
		filter["$or"] = bson.A{
			bson.M{"technicianName": f.Technician},
			bson.M{"technicianName": bson.Regex{
				Pattern: "^" + regexp.QuoteMeta(f.Technician+repo.AdminSuffix) + "$",
				Options: "i",
			}},
		}
	}
	return filter
}
