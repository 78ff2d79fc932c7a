// Workers consume post-commit transfer events from the stream and
// handle everything that should not sit on the request path: audit
// logging and transaction alerts. Balance mutations never happen here;
// those are done synchronously inside the locked unit of work.
package worker

import (
	"context"

	"github.com/kobofi/kobopay/internal/helper"
	"github.com/kobofi/kobopay/internal/repository"
	"github.com/kobofi/kobopay/internal/smtp"
	"github.com/kobofi/kobopay/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          repository.Database
	Ctx         context.Context
	Helper      *helper.HelperRepository
	Mailer      smtp.MailerInterface
}

const (
	// transferAlertGroupID is used for workers that send notifications once a transfer has been committed
	transferAlertGroupID = "transfer-alert-group"

	// transferFailureGroupID is used for workers that record failed transfer attempts
	transferFailureGroupID = "transfer-failure-group"
)

// Our workers typically need access to the database and the kafka event stream
// worker-specific dependencies can be passed as arguments to the worker
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Ctx:         wk.Ctx,
		Helper:      wk.Helper,
		Mailer:      wk.Mailer,
	}
}
