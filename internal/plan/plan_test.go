package plan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awatertrevi/strapi-migrator/internal/plan"
)

const (
	planTestFileNameConstant      = "migration.yaml"
	planTopLevelCaseNameConstant  = "top_level_content_types"
	planWrappedCaseNameConstant   = "content_types_under_migration_key"
	planDefaultsCaseNameConstant  = "destination_and_target_defaults"
	planEmptyCaseNameConstant     = "empty_plan_is_rejected"
	planMappingCaseNameConstant   = "content_types_mapping_is_rejected"
	planTopLevelPlanContent       = "content_types:\n  - source: articles\n    destination: posts\n    relationships:\n      - field: author\n        target: authors\n"
	planWrappedPlanContent        = "migration:\n  content_types:\n    - source: articles\n"
	planDefaultedPlanContent      = "content_types:\n  - source: articles\n    relationships:\n      - field: author\n"
	planEmptyPlanContent          = "content_types: []\n"
	planMappingPlanContent        = "content_types:\n  articles: {}\n"
	planMissingSourceContent      = "content_types:\n  - destination: posts\n"
	planDuplicateDestinationPlan  = "content_types:\n  - source: articles\n  - source: posts\n    destination: articles\n"
	planDuplicateRelationshipPlan = "content_types:\n  - source: articles\n    relationships:\n      - field: author\n      - field: author\n"
	planMissingFieldPlan          = "content_types:\n  - source: articles\n    relationships:\n      - target: authors\n"
)

func writePlanFile(testInstance *testing.T, contents string) string {
	tempDirectory := testInstance.TempDir()
	planPath := filepath.Join(tempDirectory, planTestFileNameConstant)
	require.NoError(testInstance, os.WriteFile(planPath, []byte(contents), 0o644))
	return planPath
}

func TestLoadPlan(testInstance *testing.T) {
	testCases := []struct {
		name                string
		contents            string
		expectError         bool
		expectedSource      string
		expectedDestination string
		expectedTargets     map[string]string
	}{
		{
			name:                planTopLevelCaseNameConstant,
			contents:            planTopLevelPlanContent,
			expectedSource:      "articles",
			expectedDestination: "posts",
			expectedTargets:     map[string]string{"author": "authors"},
		},
		{
			name:                planWrappedCaseNameConstant,
			contents:            planWrappedPlanContent,
			expectedSource:      "articles",
			expectedDestination: "articles",
			expectedTargets:     map[string]string{},
		},
		{
			name:                planDefaultsCaseNameConstant,
			contents:            planDefaultedPlanContent,
			expectedSource:      "articles",
			expectedDestination: "articles",
			expectedTargets:     map[string]string{"author": "author"},
		},
		{
			name:        planEmptyCaseNameConstant,
			contents:    planEmptyPlanContent,
			expectError: true,
		},
		{
			name:        planMappingCaseNameConstant,
			contents:    planMappingPlanContent,
			expectError: true,
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			planPath := writePlanFile(testingInstance, testCase.contents)

			migrationPlan, loadError := plan.LoadPlan(planPath)
			if testCase.expectError {
				require.Error(testingInstance, loadError)
				return
			}

			require.NoError(testingInstance, loadError)
			require.Len(testingInstance, migrationPlan.ContentTypes, 1)
			require.Equal(testingInstance, testCase.expectedSource, migrationPlan.ContentTypes[0].Source)
			require.Equal(testingInstance, testCase.expectedDestination, migrationPlan.ContentTypes[0].Destination)
			require.Equal(testingInstance, testCase.expectedTargets, migrationPlan.ContentTypes[0].RelationshipTargets())
		})
	}
}

func TestLoadPlanValidation(testInstance *testing.T) {
	testCases := []struct {
		name             string
		contents         string
		expectedErrorMsg string
	}{
		{
			name:             "missing_source_name",
			contents:         planMissingSourceContent,
			expectedErrorMsg: "missing source name",
		},
		{
			name:             "duplicate_destination",
			contents:         planDuplicateDestinationPlan,
			expectedErrorMsg: "duplicate destination",
		},
		{
			name:             "duplicate_relationship_field",
			contents:         planDuplicateRelationshipPlan,
			expectedErrorMsg: "duplicate relationship field",
		},
		{
			name:             "relationship_without_field",
			contents:         planMissingFieldPlan,
			expectedErrorMsg: "relationship without a field name",
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			planPath := writePlanFile(testingInstance, testCase.contents)

			_, loadError := plan.LoadPlan(planPath)
			require.Error(testingInstance, loadError)
			require.ErrorContains(testingInstance, loadError, testCase.expectedErrorMsg)
		})
	}
}

func TestLoadPlanMissingPath(testInstance *testing.T) {
	_, loadError := plan.LoadPlan("  ")
	require.Error(testInstance, loadError)
	require.ErrorContains(testInstance, loadError, "plan path must be provided")
}

func TestLoadPlanMissingFile(testInstance *testing.T) {
	missingPath := filepath.Join(testInstance.TempDir(), planTestFileNameConstant)

	_, loadError := plan.LoadPlan(missingPath)
	require.Error(testInstance, loadError)
	require.ErrorContains(testInstance, loadError, "failed to load migration plan")
}
