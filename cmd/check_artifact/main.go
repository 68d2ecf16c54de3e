// Command check_artifact validates a pipeline/config pair before promotion.
// It runs the same checks the server runs at startup and exits non-zero when
// the pair must not be served.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"cardioserve/ml"
	"cardioserve/schema"
)

func main() {
	kind := flag.String("kind", "logreg", "pipeline kind")
	pipelinePath := flag.String("pipeline", "", "path to the pipeline artifact")
	configPath := flag.String("config", "", "path to the decision config")
	flag.Parse()

	if *pipelinePath == "" || *configPath == "" {
		log.Fatal("both -pipeline and -config are required")
	}

	pipeline, err := ml.LoadPipeline(*kind, *pipelinePath)
	if err != nil {
		log.Fatalf("pipeline artifact rejected: %v", err)
	}
	decisionConfig, err := ml.LoadDecisionConfig(*configPath)
	if err != nil {
		log.Fatalf("decision config rejected: %v", err)
	}
	if err := schema.ValidateOrder(decisionConfig.FeatureOrder); err != nil {
		log.Fatalf("feature order rejected: %v", err)
	}
	if err := decisionConfig.CheckArity(pipeline); err != nil {
		log.Fatalf("arity check failed: %v", err)
	}

	fmt.Printf("kind:       %s\n", *kind)
	fmt.Printf("n_features: %d\n", pipeline.NumFeatures())
	fmt.Printf("threshold:  %g\n", decisionConfig.Threshold)
	fmt.Printf("order:      %s\n", strings.Join(decisionConfig.FeatureOrder, ", "))
	fmt.Println("artifact pair OK")
}
