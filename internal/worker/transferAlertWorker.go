package worker

import (
	"encoding/json"
	"log"

	"github.com/kobofi/kobopay/internal/models"
	"github.com/kobofi/kobopay/internal/payment"
	"github.com/kobofi/kobopay/internal/repository"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/kobofi/kobopay/internal/stream"
	"github.com/shopspring/decimal"
)

const (
	TransactionActivityLogSuccessDescription = "Transfer completed"
	TransactionActivityLogFailedDescription  = "Transfer failed"
)

// TransferAlertWorker listens for committed transfers and fans out the
// audit rows and debit/credit alert emails.
func (wk *Worker) TransferAlertWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: transferAlertGroupID,
		Topic:   payment.TopicTransferCompleted,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("TransferAlertWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var transfer payment.TransferEvent
				if err := json.Unmarshal(e.Value, &transfer); err != nil {
					log.Printf("Error decoding transfer event: %v", err)
					continue
				}

				wk.recordTransferActivity(&transfer, TransactionActivityLogSuccessDescription)
				wk.sendTransactionAlerts(&transfer)
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			case *kafka.AssignedPartitions:
				consumer.Assign(e.Partitions)
			case *kafka.RevokedPartitions:
				consumer.Unassign()
			}
		}
	}
}

// FailedTransferWorker records aborted transfer attempts for audit.
func (wk *Worker) FailedTransferWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: transferFailureGroupID,
		Topic:   payment.TopicTransferFailed,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("FailedTransferWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var transfer payment.TransferEvent
				if err := json.Unmarshal(e.Value, &transfer); err != nil {
					log.Printf("Error decoding transfer event: %v", err)
					continue
				}

				wk.recordTransferActivity(&transfer, TransactionActivityLogFailedDescription)
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			}
		}
	}
}

func (wk *Worker) recordTransferActivity(transfer *payment.TransferEvent, description string) {
	_, err := wk.DB.Activity().Insert(&models.ActivityLog{
		UserID:      transfer.SenderUserID,
		Entity:      repository.ActivityLogTransactionEntity,
		EntityId:    transfer.TransactionID,
		Description: description,
	})

	if err != nil {
		log.Printf("Error logging transfer activity: %v", err)
	}
}

func (wk *Worker) sendTransactionAlerts(transfer *payment.TransferEvent) {
	sender, found, err := wk.DB.User().GetOne(transfer.SenderUserID)
	if err != nil || !found {
		log.Printf("Error finding sender for transfer alert: %v", err)
		return
	}

	receiver, found, err := wk.DB.User().GetOne(transfer.ReceiverUserID)
	if err != nil || !found {
		log.Printf("Error finding receiver for transfer alert: %v", err)
		return
	}

	amount, err := decimal.NewFromString(transfer.Amount)
	if err != nil {
		log.Printf("Error parsing transfer amount: %v", err)
		return
	}

	// debit alert to the sender
	wk.Helper.BackgroundTask(func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["Name"] = sender.FullName()
		emailData["Amount"] = amount
		emailData["CounterpartyName"] = receiver.FullName()
		emailData["Reference"] = transfer.Reference

		return wk.Mailer.Send(sender.Email, emailData, "debit-alert.tmpl")
	})

	// credit alert to the receiver
	wk.Helper.BackgroundTask(func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["Name"] = receiver.FullName()
		emailData["Amount"] = amount
		emailData["CounterpartyName"] = sender.FullName()
		emailData["Reference"] = transfer.Reference

		return wk.Mailer.Send(receiver.Email, emailData, "credit-alert.tmpl")
	})
}
