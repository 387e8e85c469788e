// Package retry classifies PostgreSQL errors and retries connection
// establishment with exponential backoff.
//
// Retries are only applied while opening a session. Batch writes are never
// retried; the writer uses the classifier to tell constraint violations
// from lost connections when reporting a failed batch.
//
// # Example Usage
//
//	classifier := retry.NewPostgreSQLErrorClassifier()
//	strategy := retry.NewExponentialBackoff(3)
//	executor := retry.NewExecutor(classifier, strategy, nil)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return connectToDatabase(ctx)
//	})
package retry
