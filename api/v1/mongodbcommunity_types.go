package v1

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

type Type string

const (
	ReplicaSet Type = "ReplicaSet"
)

type Phase string

const (
	Running            Phase = "Running"
	Failed             Phase = "Failed"
	Pending            Phase = "Pending"
	defaultPasswordKey       = "password"

	defaultDBPort = 27017
)

const (
	defaultClusterDomain = "cluster.local"
)

// MongoDBCommunitySpec is the subset of the community operator's resource that the
// verifier writes when it deploys a replica set.
type MongoDBCommunitySpec struct {
	// Members is the number of members in the replica set
	// +optional
	Members int `json:"members"`
	// Type defines which type of MongoDB deployment the resource should create
	// +kubebuilder:validation:Enum=ReplicaSet
	Type Type `json:"type"`
	// Version defines which version of MongoDB will be used
	Version string `json:"version,omitempty"`

	// Security configures authentication settings for a deployment
	// +required
	Security Security `json:"security"`

	// Users specifies the MongoDB users that should be configured in your deployment
	// +required
	Users []MongoDBUser `json:"users"`

	// Prometheus configurations.
	// +optional
	Prometheus *Prometheus `json:"prometheus,omitempty"`
}

type Prometheus struct {
	// Port where metrics endpoint will bind to. Defaults to 9216.
	// +optional
	Port int `json:"port,omitempty"`

	// HTTP Basic Auth Username for metrics endpoint.
	Username string `json:"username"`

	// Name of a Secret containing a HTTP Basic Auth Password.
	PasswordSecretRef SecretKeyReference `json:"passwordSecretRef"`

	// Indicates path to the metrics endpoint.
	// +kubebuilder:validation:Pattern=^\/[a-z0-9]+$
	MetricsPath string `json:"metricsPath,omitempty"`
}

func (p Prometheus) GetPasswordKey() string {
	if p.PasswordSecretRef.Key != "" {
		return p.PasswordSecretRef.Key
	}

	return defaultPasswordKey
}

type MongoDBUser struct {
	// Name is the username of the user
	Name string `json:"name"`

	// DB is the database the user is stored in. Defaults to "admin"
	// +optional
	DB string `json:"db,omitempty"`

	// PasswordSecretRef is a reference to the secret containing this user's password
	// +optional
	PasswordSecretRef SecretKeyReference `json:"passwordSecretRef,omitempty"`

	// Roles is an array of roles assigned to this user
	Roles []Role `json:"roles"`

	// ScramCredentialsSecretName appended by string "scram-credentials" is the name of the secret object created by the mongoDB operator for storing SCRAM credentials
	// +optional
	ScramCredentialsSecretName string `json:"scramCredentialsSecretName,omitempty"`
}

func (m MongoDBUser) GetPasswordSecretKey() string {
	if m.PasswordSecretRef.Key == "" {
		return defaultPasswordKey
	}
	return m.PasswordSecretRef.Key
}

// SecretKeyReference is a reference to the secret containing the user's password
type SecretKeyReference struct {
	// Name is the name of the secret storing this user's password
	Name string `json:"name"`

	// Key is the key in the secret storing this password. Defaults to "password"
	// +optional
	Key string `json:"key"`
}

// Role is the database role this user should have
type Role struct {
	// DB is the database the role can act on
	DB string `json:"db"`
	// Name is the name of the role
	Name string `json:"name"`
}

type Security struct {
	// +optional
	Authentication Authentication `json:"authentication"`
}

type Authentication struct {
	// Modes is an array specifying which authentication methods should be enabled.
	Modes []AuthMode `json:"modes"`
}

// +kubebuilder:validation:Enum=SCRAM;SCRAM-SHA-256;SCRAM-SHA-1;X509
type AuthMode string

// MongoDBCommunityStatus defines the observed state of MongoDB
type MongoDBCommunityStatus struct {
	MongoURI string `json:"mongoUri"`
	Phase    Phase  `json:"phase"`
	Version  string `json:"version,omitempty"`

	CurrentStatefulSetReplicas int `json:"currentStatefulSetReplicas"`
	CurrentMongoDBMembers      int `json:"currentMongoDBMembers"`

	Message string `json:"message,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// MongoDBCommunity is the Schema for the mongodbs API
// +kubebuilder:resource:path=mongodbcommunity,scope=Namespaced,shortName=mdbc,singular=mongodbcommunity
type MongoDBCommunity struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MongoDBCommunitySpec   `json:"spec,omitempty"`
	Status MongoDBCommunityStatus `json:"status,omitempty"`
}

// MemberHost returns the fully qualified host the replica set member with the given
// ordinal registers itself with. A zero port means the default mongod port.
func (m *MongoDBCommunity) MemberHost(ordinal int, clusterDomain string, port int) string {
	if clusterDomain == "" {
		clusterDomain = defaultClusterDomain
	}
	return fmt.Sprintf("%s.%s.svc.%s:%d",
		m.podName(ordinal),
		m.ServiceName(),
		m.Namespace,
		clusterDomain,
		portOrDefault(port))
}

// ShortMemberHost is MemberHost without the namespace and cluster domain, the form used
// when members are configured with service-relative names.
func (m *MongoDBCommunity) ShortMemberHost(ordinal int, port int) string {
	return fmt.Sprintf("%s.%s:%d", m.podName(ordinal), m.ServiceName(), portOrDefault(port))
}

func (m *MongoDBCommunity) podName(ordinal int) string {
	return fmt.Sprintf("%s-%d", m.Name, ordinal)
}

func portOrDefault(port int) int {
	if port == 0 {
		return defaultDBPort
	}
	return port
}

// ServiceName returns the name of the Service that should be created for this resource.
func (m *MongoDBCommunity) ServiceName() string {
	return m.Name + "-svc"
}

// PodLabels are the labels the operator puts on every member pod.
func (m *MongoDBCommunity) PodLabels() map[string]string {
	return map[string]string{"app": m.ServiceName()}
}

func (m *MongoDBCommunity) NamespacedName() types.NamespacedName {
	return types.NamespacedName{Name: m.Name, Namespace: m.Namespace}
}

// IsRunningWith reports whether the operator has finished reconciling the resource
// at the given number of members.
func (m *MongoDBCommunity) IsRunningWith(members int) bool {
	return m.Status.Phase == Running &&
		m.Status.CurrentMongoDBMembers == members &&
		m.Status.CurrentStatefulSetReplicas == members
}

// +kubebuilder:object:root=true

// MongoDBCommunityList contains a list of MongoDB
type MongoDBCommunityList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MongoDBCommunity `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MongoDBCommunity{}, &MongoDBCommunityList{})
}
