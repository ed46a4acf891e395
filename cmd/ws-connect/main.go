// Package main implements the WebSocket subscription Lambda. Clients
// connect with a project ID and a bearer token; the connection is recorded
// so outline-change notices reach every open view of the project.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"outline-backend/pkg/auth"
)

var (
	dynamoClient *dynamodb.Client
	validator    *auth.JWTValidator
	connTable    string
)

func init() {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoClient = dynamodb.NewFromConfig(cfg)

	connTable = os.Getenv("CONNECTIONS_TABLE")
	if connTable == "" {
		connTable = "outline-connections"
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		validator, err = auth.NewJWTValidator(auth.JWTConfig{
			SecretKey: secret,
			Issuer:    os.Getenv("JWT_ISSUER"),
		})
		if err != nil {
			log.Fatalf("Failed to create JWT validator: %v", err)
		}
	}

	log.Println("WebSocket subscription handler initialized")
}

// storeSubscription records the connection under the project it watches,
// plus a reverse item so disconnect can find the subscription again.
func storeSubscription(ctx context.Context, projectID, connectionID, userID string) error {
	ttl := fmt.Sprintf("%d", time.Now().Add(24*time.Hour).Unix())

	items := []map[string]types.AttributeValue{
		{
			"PK":           &types.AttributeValueMemberS{Value: "PROJECT#" + projectID},
			"SK":           &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
			"ConnectionID": &types.AttributeValueMemberS{Value: connectionID},
			"UserID":       &types.AttributeValueMemberS{Value: userID},
			"TTL":          &types.AttributeValueMemberN{Value: ttl},
		},
		{
			"PK":  &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
			"SK":  &types.AttributeValueMemberS{Value: "PROJECT#" + projectID},
			"TTL": &types.AttributeValueMemberN{Value: ttl},
		},
	}

	for _, item := range items {
		if _, err := dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(connTable),
			Item:      item,
		}); err != nil {
			return fmt.Errorf("failed to store subscription: %w", err)
		}
	}
	return nil
}

// removeSubscription drops every item the connection left behind
func removeSubscription(ctx context.Context, connectionID string) error {
	out, err := dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(connTable),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}

	for _, item := range out.Items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		keys := []map[string]types.AttributeValue{
			{
				"PK": &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
				"SK": &types.AttributeValueMemberS{Value: sk.Value},
			},
			{
				"PK": &types.AttributeValueMemberS{Value: sk.Value},
				"SK": &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
			},
		}
		for _, key := range keys {
			if _, err := dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(connTable),
				Key:       key,
			}); err != nil {
				log.Printf("Failed to delete subscription item: %v", err)
			}
		}
	}
	return nil
}

// authenticate resolves the user from the connect request's token
func authenticate(request events.APIGatewayWebsocketProxyRequest) (string, error) {
	token := request.QueryStringParameters["token"]
	if token == "" {
		token = request.Headers["Authorization"]
	}
	if token == "" {
		return "", fmt.Errorf("missing authentication token")
	}

	if validator == nil {
		// Local development without a secret: the token is the user ID
		return token, nil
	}

	claims, err := validator.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// handler processes $connect and $disconnect route events
func handler(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := request.RequestContext.ConnectionID

	switch request.RequestContext.RouteKey {
	case "$disconnect":
		if err := removeSubscription(ctx, connectionID); err != nil {
			log.Printf("Disconnect cleanup failed for %s: %v", connectionID, err)
		}
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil

	default: // $connect
		userID, err := authenticate(request)
		if err != nil {
			log.Printf("Authentication failed: %v", err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusUnauthorized,
				Body:       `{"error": "unauthorized"}`,
			}, nil
		}

		projectID := request.QueryStringParameters["project_id"]
		if projectID == "" {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusBadRequest,
				Body:       `{"error": "project_id is required"}`,
			}, nil
		}

		if err := storeSubscription(ctx, projectID, connectionID, userID); err != nil {
			log.Printf("Failed to store subscription: %v", err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusInternalServerError,
				Body:       `{"error": "internal server error"}`,
			}, nil
		}

		body, _ := json.Marshal(map[string]interface{}{
			"type":       "subscribed",
			"project_id": projectID,
			"timestamp":  time.Now().Unix(),
		})
		log.Printf("Connection %s subscribed to project %s", connectionID, projectID)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Body:       string(body),
		}, nil
	}
}

func main() {
	lambda.Start(handler)
}
