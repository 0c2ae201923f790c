package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mbland/emailcheck/handler"
)

func buildHandler() (h *handler.Handler, err error) {
	var opts *handler.Options
	logger := log.Default()

	if opts, err = handler.GetOptions(os.Getenv); err != nil {
		return
	}

	// Prometheus metrics aren't collected here, since there's no long lived
	// process to scrape.
	bv, err := handler.NewBatchValidator(
		context.Background(),
		opts,
		nil,
		handler.LoadDefaultAwsConfig,
		logger,
	)
	if err != nil {
		return
	}
	api := handler.NewApiHandler(bv, opts, nil, logger)
	return handler.NewHandler(api, bv, logger), nil
}

func main() {
	// Disable standard logger flags. The CloudWatch logs show that the Lambda
	// runtime already adds a timestamp at the beginning of every log line
	// emitted by the function.
	log.SetFlags(0)

	if h, err := buildHandler(); err != nil {
		log.Fatalf("Failed to initialize process: %s", err.Error())
	} else {
		lambda.Start(h.HandleEvent)
	}
}
