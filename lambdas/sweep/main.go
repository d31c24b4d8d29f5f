// Lambda entry point: one fleet sweep per scheduled invocation. The
// configuration is read from the SSM parameter named by CONFIG_PARAM.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"axiapac.com/punchsync/app"
	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
)

const defaultParam = "punchsync"

type SweepResponse struct {
	ID        string   `json:"id"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Aborted   bool     `json:"aborted"`
	Failures  []string `json:"failures,omitempty"`
}

func HandleRequest(ctx context.Context) (*SweepResponse, error) {
	param := os.Getenv("CONFIG_PARAM")
	if param == "" {
		param = defaultParam
	}
	fmt.Printf("[INFO] Loading configuration from SSM parameter '%s'\n", param)
	cfg, err := config.LoadParameter(ctx, param)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	summary := a.Scheduler.Sweep(ctx)
	resp := &SweepResponse{
		ID:        summary.ID,
		Succeeded: summary.Succeeded(),
		Failed:    summary.Failed(),
		Aborted:   summary.Aborted,
	}
	for _, r := range summary.Results {
		if r.State == core.Failed {
			resp.Failures = append(resp.Failures, fmt.Sprintf("%s: %s", r.Device.IP, core.Category(r.Err)))
		}
	}
	return resp, nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
		return
	}

	resp, err := HandleRequest(context.Background())
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] %+v\n", *resp)
}
