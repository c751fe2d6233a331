package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/config"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.Return.Successes = true
	return c
}

func TestParseRequiredAcks(t *testing.T) {
	tests := []struct {
		in      string
		want    sarama.RequiredAcks
		wantErr bool
	}{
		{"none", sarama.NoResponse, false},
		{"leader", sarama.WaitForLocal, false},
		{"all", sarama.WaitForAll, false},
		{"", sarama.WaitForAll, false},
		{"ALL", sarama.WaitForAll, false},
		{"most", sarama.WaitForAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRequiredAcks(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDisabledIsNop(t *testing.T) {
	p, err := New(config.KafkaConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), BillEvent{Type: TypeBillGenerated}))
}

func TestProducerConfig(t *testing.T) {
	c, err := producerConfig(config.KafkaConfig{ClientID: "ezrent", RequiredAcks: "leader", RetryMax: 5})
	require.NoError(t, err)
	assert.Equal(t, "ezrent", c.ClientID)
	assert.Equal(t, sarama.WaitForLocal, c.Producer.RequiredAcks)
	assert.Equal(t, 5, c.Producer.Retry.Max)
	assert.True(t, c.Producer.Return.Successes)

	_, err = producerConfig(config.KafkaConfig{RequiredAcks: "bogus"})
	assert.Error(t, err)
}

func TestKafkaPublisherSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mockConfig())
	tenantID := uuid.New()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev BillEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != TypeBillGenerated || ev.TenantID != tenantID {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		if ev.TotalDue == nil || !ev.TotalDue.Equal(decimal.RequireFromString("5320.00")) {
			return fmt.Errorf("unexpected total due %v", ev.TotalDue)
		}
		return nil
	})

	pub := NewKafkaPublisher(producer, "rent.bills", nil)
	total := decimal.RequireFromString("5320.00")
	err := pub.Publish(context.Background(), BillEvent{
		Type:     TypeBillGenerated,
		Period:   "2024-03",
		TenantID: tenantID,
		TotalDue: &total,
	})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisherStopsOnFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mockConfig())
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(errors.New("broker unavailable"))

	pub := NewKafkaPublisher(producer, "rent.bills", nil)
	err := pub.Publish(context.Background(),
		BillEvent{Type: TypeBillGenerated, TenantID: uuid.New()},
		BillEvent{Type: TypeBillFailed, TenantID: uuid.New()},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeBillFailed)
	require.NoError(t, pub.Close())
}

func TestFromBulkResult(t *testing.T) {
	period := models.Period{Month: 3, Year: 2024}
	okTenant, failedTenant := uuid.New(), uuid.New()
	billID := uuid.New()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	result := &billing.BulkResult{
		Period: period,
		Results: []billing.TenantResult{
			{
				TenantID: okTenant,
				Bill: &models.Bill{
					ID:           billID,
					TotalDue:     decimal.RequireFromString("5320.00"),
					CarryForward: decimal.RequireFromString("320.00"),
				},
			},
			{
				TenantID: failedTenant,
				Kind:     billing.FailureIncompleteData,
				Error:    "incomplete data: no meter reading",
				Err:      billing.ErrIncompleteData,
			},
		},
	}

	evs := FromBulkResult(result, at)
	require.Len(t, evs, 2)

	assert.Equal(t, TypeBillGenerated, evs[0].Type)
	assert.Equal(t, "2024-03", evs[0].Period)
	require.NotNil(t, evs[0].BillID)
	assert.Equal(t, billID, *evs[0].BillID)
	assert.True(t, evs[0].CarryForward.Equal(decimal.RequireFromString("320")))

	assert.Equal(t, TypeBillFailed, evs[1].Type)
	assert.Equal(t, failedTenant, evs[1].TenantID)
	assert.Equal(t, "incomplete_data", evs[1].FailureKind)
	assert.Nil(t, evs[1].BillID)
}
