package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	testCases := []struct {
		name    string
		brokers []string
	}{
		{name: "nil", brokers: nil},
		{name: "blank entries", brokers: []string{"", ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pub, sub, err := CreateChannel(watermill.NopLogger{}, Config{Brokers: tc.brokers})
			assert.ErrorIs(t, err, ErrNoBrokers)
			assert.Nil(t, pub)
			assert.Nil(t, sub)
		})
	}
}
