package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"outline-backend/application/ports"
	"outline-backend/application/transfer"
	pkgerrors "outline-backend/pkg/errors"
	"outline-backend/pkg/utils"
)

// Key layout: one item per project in a single table.
//   PK = USER#<ownerID>
//   SK = PROJECT#<projectID>
// The owner's project list is a Query on the PK with an SK prefix, so no
// GSI is needed for the primary access patterns.
const (
	pkPrefix = "USER#"
	skPrefix = "PROJECT#"

	defaultProjectName = "Untitled project"
	maxNameLength      = 120
	maxDescription     = 500
)

// projectItem is the DynamoDB shape of a stored project. The outline
// document is stored as a JSON blob; it is read and written whole, never
// queried into.
type projectItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	ProjectID   string `dynamodbav:"ProjectID"`
	OwnerID     string `dynamodbav:"OwnerID"`
	Name        string `dynamodbav:"Name"`
	Description string `dynamodbav:"Description"`
	NoteCount   int    `dynamodbav:"NoteCount"`
	Sequence    uint64 `dynamodbav:"Sequence"`
	Document    string `dynamodbav:"Document"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

// ProjectRepository stores outline documents in DynamoDB
type ProjectRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewProjectRepository creates a repository backed by the given table
func NewProjectRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *ProjectRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists the document. The write is conditional on the stored
// sequence being older, so two instances saving the same project cannot
// interleave out of order; the corrected metadata comes back to the caller.
func (r *ProjectRepository) Save(ctx context.Context, meta ports.ProjectMeta, doc *transfer.Document) (*ports.ProjectMeta, error) {
	if doc == nil {
		return nil, pkgerrors.NewValidationError("document cannot be nil")
	}

	stored := correctMeta(meta)
	stored.UpdatedAt = time.Now().UTC()

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to serialize document").WithCause(err)
	}

	item := projectItem{
		PK:          pkPrefix + stored.OwnerID,
		SK:          skPrefix + stored.ProjectID,
		ProjectID:   stored.ProjectID,
		OwnerID:     stored.OwnerID,
		Name:        stored.Name,
		Description: stored.Description,
		NoteCount:   stored.NoteCount,
		Sequence:    stored.Sequence,
		Document:    string(body),
		UpdatedAt:   utils.FormatRFC3339(stored.UpdatedAt),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to marshal project item").WithCause(err)
	}

	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("Sequence")),
		expression.Name("Sequence").LessThan(expression.Value(stored.Sequence)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build condition expression").WithCause(err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// A newer save already landed; treat this one as stale.
			return nil, pkgerrors.NewConflictError(
				fmt.Sprintf("save with sequence %d superseded by a newer save", stored.Sequence))
		}
		return nil, pkgerrors.NewDatabaseError("failed to save project", err)
	}

	r.logger.Debug("project saved",
		zap.String("project_id", stored.ProjectID),
		zap.Uint64("sequence", stored.Sequence),
		zap.Int("note_count", stored.NoteCount))
	return &stored, nil
}

// Load retrieves a project's document and metadata
func (r *ProjectRepository) Load(ctx context.Context, ownerID, projectID string) (*transfer.Document, *ports.ProjectMeta, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkPrefix + ownerID},
			"SK": &types.AttributeValueMemberS{Value: skPrefix + projectID},
		},
	})
	if err != nil {
		return nil, nil, pkgerrors.NewDatabaseError("failed to load project", err)
	}
	if out.Item == nil {
		return nil, nil, pkgerrors.NewNotFoundError("project")
	}

	var item projectItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, nil, pkgerrors.NewInternalError("failed to unmarshal project item").WithCause(err)
	}

	var doc transfer.Document
	if err := json.Unmarshal([]byte(item.Document), &doc); err != nil {
		return nil, nil, pkgerrors.NewInternalError("stored document is corrupt").WithCause(err)
	}

	meta := itemToMeta(item)
	return &doc, meta, nil
}

// ListByOwner retrieves metadata for all of an owner's projects. The
// document blob is projected out to keep the response small.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*ports.ProjectMeta, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(pkPrefix + ownerID)).
		And(expression.Key("SK").BeginsWith(skPrefix))
	proj := expression.NamesList(
		expression.Name("ProjectID"),
		expression.Name("OwnerID"),
		expression.Name("Name"),
		expression.Name("Description"),
		expression.Name("NoteCount"),
		expression.Name("Sequence"),
		expression.Name("UpdatedAt"),
	)
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithProjection(proj).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build query expression").WithCause(err)
	}

	var metas []*ports.ProjectMeta
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("failed to list projects", err)
		}

		var items []projectItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, pkgerrors.NewInternalError("failed to unmarshal project items").WithCause(err)
		}
		for _, item := range items {
			metas = append(metas, itemToMeta(item))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return metas, nil
}

// Delete removes a project and its document
func (r *ProjectRepository) Delete(ctx context.Context, ownerID, projectID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkPrefix + ownerID},
			"SK": &types.AttributeValueMemberS{Value: skPrefix + projectID},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to delete project", err)
	}
	return nil
}

// correctMeta applies the store's rules for user-supplied fields: names are
// trimmed and defaulted, descriptions truncated. Callers adopt what Save
// returns rather than what they sent.
func correctMeta(meta ports.ProjectMeta) ports.ProjectMeta {
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		meta.Name = defaultProjectName
	}
	if len(meta.Name) > maxNameLength {
		meta.Name = meta.Name[:maxNameLength]
	}
	meta.Description = strings.TrimSpace(meta.Description)
	if len(meta.Description) > maxDescription {
		meta.Description = meta.Description[:maxDescription]
	}
	return meta
}

func itemToMeta(item projectItem) *ports.ProjectMeta {
	updatedAt, _ := utils.ParseRFC3339(item.UpdatedAt)
	return &ports.ProjectMeta{
		ProjectID:   item.ProjectID,
		OwnerID:     item.OwnerID,
		Name:        item.Name,
		Description: item.Description,
		NoteCount:   item.NoteCount,
		Sequence:    item.Sequence,
		UpdatedAt:   updatedAt,
	}
}
