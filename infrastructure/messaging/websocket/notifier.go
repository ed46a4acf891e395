package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	agwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	pkgerrors "outline-backend/pkg/errors"
)

// changeMessage is the payload pushed to connected clients when a project's
// outline advances to a new saved sequence.
type changeMessage struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	Sequence  uint64 `json:"sequence"`
	At        string `json:"at"`
}

// connectionItem maps one websocket connection to the project it watches.
//   PK = PROJECT#<projectID>, SK = CONN#<connectionID>
type connectionItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	ConnectionID string `dynamodbav:"ConnectionID"`
}

// Notifier pushes outline-change notices over API Gateway websocket
// connections. Connection IDs live in a DynamoDB table keyed by project;
// stale connections are removed when a post fails with GoneException.
type Notifier struct {
	api       *apigatewaymanagementapi.Client
	db        *dynamodb.Client
	connTable string
	logger    *zap.Logger
}

// NewNotifier creates a notifier using the given management API endpoint
func NewNotifier(api *apigatewaymanagementapi.Client, db *dynamodb.Client, connTable string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		api:       api,
		db:        db,
		connTable: connTable,
		logger:    logger,
	}
}

// NotifyOutlineChanged posts a change notice to every connection watching
// the project. Delivery is best-effort per connection.
func (n *Notifier) NotifyOutlineChanged(ctx context.Context, projectID string, sequence uint64) error {
	conns, err := n.connectionsFor(ctx, projectID)
	if err != nil {
		return err
	}
	if len(conns) == 0 {
		return nil
	}

	payload, err := json.Marshal(changeMessage{
		Type:      "outline.changed",
		ProjectID: projectID,
		Sequence:  sequence,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to serialize change message").WithCause(err)
	}

	for _, conn := range conns {
		_, err := n.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(conn),
			Data:         payload,
		})
		if err != nil {
			var gone *agwtypes.GoneException
			if errors.As(err, &gone) {
				n.dropConnection(ctx, projectID, conn)
				continue
			}
			n.logger.Debug("failed to post to connection",
				zap.String("connection_id", conn),
				zap.Error(err))
		}
	}
	return nil
}

// connectionsFor lists the connection IDs subscribed to a project
func (n *Notifier) connectionsFor(ctx context.Context, projectID string) ([]string, error) {
	keyCond := expression.Key("PK").Equal(expression.Value("PROJECT#" + projectID)).
		And(expression.Key("SK").BeginsWith("CONN#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build connection query").WithCause(err)
	}

	out, err := n.db.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(n.connTable),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to list connections", err)
	}

	var items []connectionItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, pkgerrors.NewInternalError("failed to unmarshal connection items").WithCause(err)
	}

	conns := make([]string, 0, len(items))
	for _, item := range items {
		conns = append(conns, item.ConnectionID)
	}
	return conns, nil
}

// dropConnection removes a connection that API Gateway reports as gone
func (n *Notifier) dropConnection(ctx context.Context, projectID, connectionID string) {
	_, err := n.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(n.connTable),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: "PROJECT#" + projectID},
			"SK": &ddbtypes.AttributeValueMemberS{Value: "CONN#" + connectionID},
		},
	})
	if err != nil {
		n.logger.Debug("failed to remove stale connection",
			zap.String("connection_id", connectionID),
			zap.Error(err))
	}
}
