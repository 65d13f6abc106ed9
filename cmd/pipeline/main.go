package main

import (
	"context"
	"fmt"
	"os"

	"dagger.io/dagger"
)

const goImage = "golang:1.22-bookworm"

func main() {
	// Create a shared context
	ctx := context.Background()

	// Run the stages of the pipeline
	if err := Build(ctx); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// Build runs prepare, train, publish-model and push-space in a Go container
// and exports the artifacts and tracking runs to the host.
func Build(ctx context.Context) error {
	for _, env := range []string{"HF_TOKEN", "DATASET_REPO", "MODEL_REPO", "SPACE_ID"} {
		if os.Getenv(env) == "" {
			return fmt.Errorf("%s is not set", env)
		}
	}

	// Initialize Dagger client
	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer client.Close()

	// Host repository root
	repo := client.Host().Directory(".", dagger.HostDirectoryOpts{
		Exclude: []string{"artifacts", "mlruns", "_examples", ".git"},
	})
	token := client.SetSecret("hf-token", os.Getenv("HF_TOKEN"))

	// Persistent module and build caches to speed up runs
	modCache := client.CacheVolume("go-mod-cache")
	buildCache := client.CacheVolume("go-build-cache")

	base := client.Container().
		From(goImage).
		WithMountedCache("/go/pkg/mod", modCache).
		WithMountedCache("/root/.cache/go-build", buildCache).
		WithDirectory("/repo", repo).
		WithWorkdir("/repo").
		WithSecretVariable("HF_TOKEN", token).
		WithEnvVariable("DATASET_REPO", os.Getenv("DATASET_REPO")).
		WithEnvVariable("MODEL_REPO", os.Getenv("MODEL_REPO")).
		WithEnvVariable("SPACE_ID", os.Getenv("SPACE_ID")).
		WithExec([]string{"go", "build", "-o", "/usr/local/bin/mlops", "./cmd/mlops"})

	if _, err := base.Stdout(ctx); err != nil {
		return err
	}

	// Step 1: Data preparation
	fmt.Println("Initializing data preparation")
	prepared := base.WithExec([]string{"mlops", "prepare"})
	if _, err := prepared.Stdout(ctx); err != nil {
		return err
	}

	// Step 2: Training
	fmt.Println("Initializing training")
	trained := prepared.WithExec([]string{"mlops", "train", "--mlflow-uri", "file:./mlruns"})
	if _, err := trained.Stdout(ctx); err != nil {
		return err
	}

	// Step 3: Publish the model bundle
	fmt.Println("Publishing model")
	published := trained.WithExec([]string{"mlops", "publish-model"})
	if _, err := published.Stdout(ctx); err != nil {
		return err
	}

	// Step 4: Deploy the app
	fmt.Println("Deploying space")
	deployed := published.WithExec([]string{"mlops", "push-space", "--folder", "deploy/space", "--sdk", "docker", "--app-port", "7860"})
	if _, err := deployed.Stdout(ctx); err != nil {
		return err
	}

	// Step 5: Export artifacts and tracking runs
	fmt.Println("Exporting Artifacts and Runs")
	if _, err := trained.Directory("/repo/artifacts").Export(ctx, "artifacts"); err != nil {
		return err
	}
	if _, err := trained.Directory("/repo/mlruns").Export(ctx, "mlruns"); err != nil {
		return err
	}

	fmt.Println("Pipeline complete")
	return nil
}
