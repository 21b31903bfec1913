package github

const latestCommitQuery = `query LatestCommit($owner: String!, $name: String!, $branch: String!) {
  repository(owner: $owner, name: $name) {
    ref(qualifiedName: $branch) {
      target {
        __typename
        ... on Commit {
          oid
        }
      }
    }
  }
}`

const latestCommitDefaultBranchQuery = `query LatestCommitDefaultBranch($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    defaultBranchRef {
      target {
        __typename
        ... on Commit {
          oid
        }
      }
    }
  }
}`

type target struct {
	Typename string `json:"__typename"`
	Oid      string `json:"oid"`
}

type ref struct {
	Target *target `json:"target"`
}

type repository struct {
	Ref              *ref `json:"ref"`
	DefaultBranchRef *ref `json:"defaultBranchRef"`
}

type commitResponse struct {
	Repository *repository `json:"repository"`
}
