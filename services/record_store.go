package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition restricts a put or delete to records whose named field currently
// equals the given value. Used instead of locking: the delete half of a
// re-key is conditioned on the id still matching.
type Condition struct {
	Field  string
	Equals string
}

// Filter is a server-side equality filter applied after the key condition.
type Filter struct {
	Field string
	Value types.AttributeValue
}

// RangeQuery describes one page of a cursor-driven range read.
type RangeQuery struct {
	Table      string
	HashName   string
	HashValue  string
	SortName   string
	SortFrom   string // exclusive lower bound on the sort key, "" for unbounded
	Descending bool
	Limit      int32
	Filters    []Filter
	StartKey   map[string]string
}

// Page is one page of results plus the continuation cursor; an empty LastKey
// means the scan is complete.
type Page struct {
	Items   []map[string]types.AttributeValue
	LastKey map[string]string
}

// RecordStore is the document-store contract the domain services are written
// against. DynamoService implements it; tests substitute an in-memory fake.
// All key attributes are strings, so keys and cursors travel as plain string
// maps.
type RecordStore interface {
	Get(ctx context.Context, table string, key map[string]string) (map[string]types.AttributeValue, error)
	Put(ctx context.Context, table string, item interface{}, cond *Condition) error
	Delete(ctx context.Context, table string, key map[string]string, cond *Condition) (map[string]types.AttributeValue, error)
	Query(ctx context.Context, q RangeQuery) (Page, error)
	Scan(ctx context.Context, table string, startKey map[string]string, limit int32) (Page, error)
}

// DynamoAPI is the slice of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoService implements RecordStore against DynamoDB.
type DynamoService struct {
	Client DynamoAPI
}

func (ds *DynamoService) Get(ctx context.Context, table string, key map[string]string) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &table,
		Key:       stringKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", table, err)
	}
	if output.Item == nil {
		return nil, fmt.Errorf("get from table '%s': %w", table, ErrNotFound)
	}
	return output.Item, nil
}

func (ds *DynamoService) Put(ctx context.Context, table string, item interface{}, cond *Condition) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: &table,
		Item:      marshaled,
	}
	applyCondition(cond, &input.ConditionExpression, &input.ExpressionAttributeNames, &input.ExpressionAttributeValues)

	if _, err = ds.Client.PutItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("put in table '%s': %w", table, ErrConditionFailed)
		}
		return fmt.Errorf("failed to put item in table '%s': %w", table, err)
	}
	return nil
}

func (ds *DynamoService) Delete(ctx context.Context, table string, key map[string]string, cond *Condition) (map[string]types.AttributeValue, error) {
	input := &dynamodb.DeleteItemInput{
		TableName:    &table,
		Key:          stringKey(key),
		ReturnValues: types.ReturnValueAllOld,
	}
	applyCondition(cond, &input.ConditionExpression, &input.ExpressionAttributeNames, &input.ExpressionAttributeValues)

	output, err := ds.Client.DeleteItem(ctx, input)
	if err != nil {
		if isConditionFailure(err) {
			return nil, fmt.Errorf("delete from table '%s': %w", table, ErrConditionFailed)
		}
		return nil, fmt.Errorf("failed to delete item from table '%s': %w", table, err)
	}
	if output.Attributes == nil {
		return nil, fmt.Errorf("delete from table '%s': %w", table, ErrNotFound)
	}
	return output.Attributes, nil
}

func (ds *DynamoService) Query(ctx context.Context, q RangeQuery) (Page, error) {
	keyCondition := "#hk = :hv"
	names := map[string]string{"#hk": q.HashName}
	values := map[string]types.AttributeValue{
		":hv": &types.AttributeValueMemberS{Value: q.HashValue},
	}
	if q.SortFrom != "" {
		keyCondition += " AND #sk > :sv"
		names["#sk"] = q.SortName
		values[":sv"] = &types.AttributeValueMemberS{Value: q.SortFrom}
	}

	var filters []string
	for i, f := range q.Filters {
		n := fmt.Sprintf("#f%d", i)
		v := fmt.Sprintf(":f%d", i)
		names[n] = f.Field
		values[v] = f.Value
		filters = append(filters, n+" = "+v)
	}

	input := &dynamodb.QueryInput{
		TableName:                 &q.Table,
		KeyConditionExpression:    &keyCondition,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(!q.Descending),
		ExclusiveStartKey:         stringKeyOrNil(q.StartKey),
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " AND "))
	}

	output, err := ds.Client.Query(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query table '%s': %w", q.Table, err)
	}
	return Page{Items: output.Items, LastKey: cursorOf(output.LastEvaluatedKey)}, nil
}

func (ds *DynamoService) Scan(ctx context.Context, table string, startKey map[string]string, limit int32) (Page, error) {
	input := &dynamodb.ScanInput{
		TableName:         &table,
		ExclusiveStartKey: stringKeyOrNil(startKey),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	output, err := ds.Client.Scan(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("failed to scan table '%s': %w", table, err)
	}
	return Page{Items: output.Items, LastKey: cursorOf(output.LastEvaluatedKey)}, nil
}

func stringKey(key map[string]string) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(key))
	for k, v := range key {
		out[k] = &types.AttributeValueMemberS{Value: v}
	}
	return out
}

func stringKeyOrNil(key map[string]string) map[string]types.AttributeValue {
	if len(key) == 0 {
		return nil
	}
	return stringKey(key)
}

func cursorOf(lastEvaluated map[string]types.AttributeValue) map[string]string {
	if len(lastEvaluated) == 0 {
		return nil
	}
	out := make(map[string]string, len(lastEvaluated))
	for k, v := range lastEvaluated {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out[k] = s.Value
		} else {
			log.Printf("cursor attribute %s is not a string, dropping", k)
		}
	}
	return out
}

func applyCondition(cond *Condition, expr **string, names *map[string]string, values *map[string]types.AttributeValue) {
	if cond == nil {
		return
	}
	*expr = aws.String("#cf = :cv")
	if *names == nil {
		*names = map[string]string{}
	}
	if *values == nil {
		*values = map[string]types.AttributeValue{}
	}
	(*names)["#cf"] = cond.Field
	(*values)[":cv"] = &types.AttributeValueMemberS{Value: cond.Equals}
}

func isConditionFailure(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}
