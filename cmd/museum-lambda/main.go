// Command museum-lambda solves a roster posted to a Lambda function URL.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"museum/api"
	"museum/solver"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// Per-request bounds on the search.
const (
	solveTimeout = 20 * time.Second
	maxStates    = 500_000
)

var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req api.Roster
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}
	r, err := req.Build()
	if err != nil {
		return errResp(400, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, solveTimeout)
	defer cancel()

	start := time.Now()
	sol, err := r.Solve(ctx, solver.Params{MaxStates: maxStates})
	elapsed := time.Since(start)
	if result, status, msg := api.SolveOutcome(err); err != nil {
		logger.Warn("solve failed", "result", result, "elapsed", elapsed, "error", err)
		return errResp(status, msg)
	}

	logger.Info("solved", "members", len(req.Members), "zones", len(req.Zones), "elapsed", elapsed)
	respJSON, _ := json.Marshal(api.NewSolution(sol, elapsed))
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	lambda.Start(handler)
}
