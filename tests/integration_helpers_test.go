package tests

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const (
	integrationCommandTimeout              = 60 * time.Second
	integrationSubtestNameTemplateConstant = "%d_%s"
	integrationConfigFileNameConstant      = "config.yaml"
	integrationConfigFlagTemplateConstant  = "--config=%s"
)

func integrationRepositoryRoot(testInstance *testing.T) string {
	testInstance.Helper()

	currentWorkingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		testInstance.Fatalf("unable to determine working directory: %v", workingDirectoryError)
	}
	return filepath.Dir(currentWorkingDirectory)
}

func runIntegrationCommand(testInstance *testing.T, repositoryRoot string, environmentOverrides map[string]string, arguments []string) (string, error) {
	testInstance.Helper()

	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationCommandTimeout)
	defer cancelFunction()

	command := exec.CommandContext(executionContext, "go", arguments...)
	command.Dir = repositoryRoot
	environment := append([]string{}, os.Environ()...)
	for environmentKey, environmentValue := range environmentOverrides {
		environment = append(environment, fmt.Sprintf("%s=%s", environmentKey, environmentValue))
	}
	command.Env = environment

	outputBytes, runError := command.CombinedOutput()
	return string(outputBytes), runError
}

func writeIntegrationFile(testInstance *testing.T, filePath string, content string) {
	testInstance.Helper()

	if writeError := os.WriteFile(filePath, []byte(content), 0o600); writeError != nil {
		testInstance.Fatalf("unable to write %s: %v", filePath, writeError)
	}
}
