package notify

import (
	"context"
	"log"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"salonpos/backend/internal/domain"
)

// SendTimeout bounds one Twilio API call.
const SendTimeout = 5 * time.Second

type TwilioReceipts struct {
	client    *twilio.RestClient
	from      string
	salonName string
}

func NewTwilioReceipts(accountSID string, authToken string, from string, salonName string) *TwilioReceipts {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	client.SetTimeout(SendTimeout)
	return &TwilioReceipts{
		client:    client,
		from:      from,
		salonName: salonName,
	}
}

func (t *TwilioReceipts) SendReceipt(ctx context.Context, tx domain.Transaction) error {
	to, ok := NormalizePhone(tx.CustomerMobile)
	if !ok {
		return ErrUnreachableNumber
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(ReceiptMessage(t.salonName, tx))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return err
	}
	if resp.Sid != nil {
		log.Printf("[notify] receipt for %s sent, SID: %s", tx.ID, *resp.Sid)
	}
	return nil
}
