package graphql

// Schema is the operation-based binding of the auth protocol.
const Schema = `
schema {
	query: Query
	mutation: Mutation
}

type Query {
	getCurrentAuthMode: AuthModeResponse!
	getCurrentUser: User
}

type Mutation {
	registerUser(user: RegisterInput!): AuthResponse!
	login(login: LoginInput!): AuthResponse!
	logout: Boolean!
	switchAuthMode(mode: String!): AuthModeResponse!
}

input RegisterInput {
	username: String!
	email: String!
	password: String!
}

input LoginInput {
	username: String!
	password: String!
}

type AuthResponse {
	token: String
	user: User!
}

type User {
	id: ID!
	username: String!
	email: String!
	roles: [String!]!
}

type AuthModeResponse {
	currentMode: String!
}
`
